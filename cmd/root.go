package cmd

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "orbits",
	Short: "Segment daily instrument data into orbits",
	Long: `Orbits splits continuous, daily instrument data into orbits: repeating cycles
of an index quantity such as local time, longitude, latitude, or an orbit counter.
It can ingest data into a local store, walk the orbits of a date range, and serve
orbit navigation sessions over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Bound here rather than in init so that commands sharing a flag name
		// don't overwrite each other's bindings.
		return viper.BindPFlags(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(
		"config",
		"",
		"Path to a configuration file.",
	)

	rootCmd.PersistentFlags().Bool(
		"debug",
		false,
		"Enable debug logging.",
	)

	rootCmd.PersistentFlags().StringP(
		"data",
		"d",
		"orbits-data",
		"Dirname where orbits stores its data.",
	)

	rootCmd.PersistentFlags().Bool(
		"mem",
		false,
		"Keep stored data in memory only.",
	)
}

func initConfig() {
	viper.SetEnvPrefix("orbits")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cfgFile, err := rootCmd.PersistentFlags().GetString("config")
	if err != nil || cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		cobra.CheckErr(errors.Wrapf(err, "[cmd] - failed to read config file %s", cfgFile))
	}
}

func configureLogging() (*zap.Logger, error) {
	if viper.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
