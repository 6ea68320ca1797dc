package cmd

import (
	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/iterator"
	"github.com/arya-analytics/orbits/pkg/storage"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func addOrbitFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(
		"index",
		"i",
		"mlt",
		"Key of the column holding the cycling quantity.",
	)
	cmd.Flags().StringP(
		"kind",
		"k",
		string(orbit.LocalTime),
		"Orbit break detection strategy: local_time, longitude, orbit_number or polar.",
	)
	cmd.Flags().Duration(
		"period",
		orbit.DefaultPeriod.Duration(),
		"Approximate duration of one orbit.",
	)
	cmd.Flags().Duration(
		"min-duration",
		0,
		"Shortest separation between two orbit breaks. Defaults to a quarter period.",
	)
	cmd.Flags().Int(
		"max-scan-days",
		iterator.DefaultMaxScanDays,
		"Maximum number of days examined when rolling over to another day.",
	)
}

func newIteratorConfig(logger *zap.Logger) (iterator.Config, error) {
	kind, err := orbit.ParseKind(viper.GetString("kind"))
	if err != nil {
		return iterator.Config{}, err
	}
	return iterator.Config{
		Info: orbit.Info{
			Index:       viper.GetString("index"),
			Kind:        kind,
			Period:      telem.NewTimeSpan(viper.GetDuration("period")),
			MinDuration: telem.NewTimeSpan(viper.GetDuration("min-duration")),
		},
		MaxScanDays: viper.GetInt("max-scan-days"),
		Logger:      logger.Named("iterator"),
	}, nil
}

func newStorageConfig(logger *zap.Logger) storage.Config {
	return storage.Config{
		MemBacked: viper.GetBool("mem"),
		Dirname:   viper.GetString("data"),
		Logger:    logger.Named("storage"),
	}
}

// parseRange parses the start and end date flags into the days [start, end].
func parseRange() (telem.TimeRange, error) {
	start, err := telem.ParseDate(viper.GetString("start"))
	if err != nil {
		return telem.TimeRange{}, err
	}
	end, err := telem.ParseDate(viper.GetString("end"))
	if err != nil {
		return telem.TimeRange{}, err
	}
	return telem.TimeRange{Start: start, End: end.AddDays(1)}, nil
}
