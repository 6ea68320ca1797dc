package cmd

import (
	"fmt"

	"github.com/arya-analytics/orbits/pkg/instrument"
	"github.com/arya-analytics/orbits/pkg/orbit/iterator"
	"github.com/arya-analytics/orbits/pkg/storage"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Print the orbits of a range of days",
	Long: `Walk reads the stored days between --start and --end inclusive, splits them into
orbits and prints one line per orbit: its day, its number within the day, its first
and last sample times and its sample count.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger, err := configureLogging()
		if err != nil {
			return err
		}
		tr, err := parseRange()
		if err != nil {
			return err
		}
		itCfg, err := newIteratorConfig(logger)
		if err != nil {
			return err
		}

		store, err := storage.Open(newStorageConfig(logger))
		if err != nil {
			return err
		}
		defer func() {
			err = errors.CombineErrors(err, store.Close())
		}()

		inst, err := instrument.New(instrument.Config{
			Source: store,
			Bounds: telem.Bounds{Range: tr},
			Logger: logger.Named("instrument"),
		})
		if err != nil {
			return err
		}
		it, err := iterator.New(inst, itCfg)
		if err != nil {
			return err
		}
		logger.Info("walking orbits", zap.Stringer("iterator", it), zap.Stringer("range", tr))

		count := 0
		err = it.Walk(cmd.Context(), func(o iterator.Orbit) error {
			count++
			_, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s\t%d/%d\t%s\t%s\t%d\n",
				o.Day.DateString(),
				o.Number,
				o.Total,
				o.Data.First(),
				o.Data.Last(),
				o.Data.Len(),
			)
			return err
		})
		logger.Info("walk complete", zap.Int("orbits", count))
		return err
	},
}

func init() {
	rootCmd.AddCommand(walkCmd)
	addOrbitFlags(walkCmd)
	walkCmd.Flags().String(
		"start",
		"2009-01-01",
		"First day to walk, formatted YYYY-MM-DD.",
	)
	walkCmd.Flags().String(
		"end",
		"2009-01-07",
		"Last day to walk, formatted YYYY-MM-DD.",
	)
}
