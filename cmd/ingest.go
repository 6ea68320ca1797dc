package cmd

import (
	"strings"
	"time"

	"github.com/arya-analytics/orbits/pkg/storage"
	"github.com/arya-analytics/orbits/pkg/synth"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Write synthetic instrument data into the store",
	Long: `Ingest generates deterministic orbiting instrument data, one sample per cadence
with local time, longitude, latitude and orbit number columns, and writes it into the
store day by day. Gaps are given as RFC3339 ranges, e.g.

	--gap 2009-01-03T06:00:00Z/2009-01-05T12:00:00Z`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger, err := configureLogging()
		if err != nil {
			return err
		}
		cfg, err := newSynthConfig()
		if err != nil {
			return err
		}
		gen := synth.New(cfg)

		store, err := storage.Open(newStorageConfig(logger))
		if err != nil {
			return err
		}
		defer func() {
			err = errors.CombineErrors(err, store.Close())
		}()

		span := gen.Span()
		for day := span.FirstDay(); day <= span.LastDay(); day = day.AddDays(1) {
			if err = cmd.Context().Err(); err != nil {
				return err
			}
			f := gen.Frame(telem.TimeRange{Start: day, End: day.AddDays(1)})
			if f.Empty() {
				continue
			}
			if err = store.Write(f); err != nil {
				return err
			}
			logger.Debug("ingested day",
				zap.String("day", day.DateString()),
				zap.Int("samples", f.Len()),
			)
		}
		logger.Info("ingest complete",
			zap.Stringer("span", span),
			zap.String("data", store.Cfg.Dirname),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String(
		"epoch",
		"2009-01-01",
		"Date at which orbit 1 starts.",
	)
	ingestCmd.Flags().Int(
		"days",
		7,
		"Number of days of data to generate.",
	)
	ingestCmd.Flags().Duration(
		"period",
		97*time.Minute,
		"Duration of one generated orbit.",
	)
	ingestCmd.Flags().Duration(
		"cadence",
		time.Minute,
		"Spacing of generated samples.",
	)
	ingestCmd.Flags().StringSlice(
		"gap",
		nil,
		"Ranges of time left without samples, as start/end in RFC3339.",
	)
}

func newSynthConfig() (synth.Config, error) {
	epoch, err := telem.ParseDate(viper.GetString("epoch"))
	if err != nil {
		return synth.Config{}, err
	}
	days := viper.GetInt("days")
	if days <= 0 {
		return synth.Config{}, errors.Newf("[cmd] - days must be positive, got %d", days)
	}
	gaps, err := parseGaps(viper.GetStringSlice("gap"))
	if err != nil {
		return synth.Config{}, err
	}
	return synth.Config{
		Epoch:   epoch,
		Span:    telem.TimeRange{Start: epoch, End: epoch.AddDays(days)},
		Period:  telem.NewTimeSpan(viper.GetDuration("period")),
		Cadence: telem.NewTimeSpan(viper.GetDuration("cadence")),
		Gaps:    gaps,
	}, nil
}

func parseGaps(raw []string) ([]telem.TimeRange, error) {
	gaps := make([]telem.TimeRange, 0, len(raw))
	for _, r := range raw {
		bounds := strings.Split(r, "/")
		if len(bounds) != 2 {
			return nil, errors.Newf("[cmd] - gap %q must be formatted as start/end", r)
		}
		start, err := time.Parse(time.RFC3339, bounds[0])
		if err != nil {
			return nil, errors.Wrapf(err, "[cmd] - invalid gap %q", r)
		}
		end, err := time.Parse(time.RFC3339, bounds[1])
		if err != nil {
			return nil, errors.Wrapf(err, "[cmd] - invalid gap %q", r)
		}
		gaps = append(gaps, telem.TimeRange{Start: telem.NewTimeStamp(start), End: telem.NewTimeStamp(end)})
	}
	return gaps, nil
}
