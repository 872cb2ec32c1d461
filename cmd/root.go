package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"endobit.io/app/log"
)

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		cfgFile  string
	)

	cmd := cobra.Command{
		Use:          "burn",
		Short:        "Wood stove burn prediction",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return loadConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default burn.yaml)")

	cmd.AddCommand(newTrainCmd())
	cmd.AddCommand(newForecastCmd())
	cmd.AddCommand(newMonitorCmd())
	cmd.AddCommand(newPlotCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSpeciesCmd())
	cmd.AddCommand(newVersionCmd())

	return &cmd
}

func parseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return log.LevelTrace, nil
	}

	var level slog.Level

	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}

	return level, nil
}

// loadConfig reads .env, then burn.yaml and BURN_ environment variables into
// viper. A missing config file is not an error.
func loadConfig(file string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot load .env: %w", err)
	}

	setDefaults()

	viper.SetEnvPrefix("burn")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("burn")
		viper.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "burn"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("cannot read config: %w", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("config", "file", used)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("influx.url", "https://us-east-1-1.aws.cloud2.influxdata.com")
	viper.SetDefault("influx.bucket", "temperature_bucket")
	viper.SetDefault("influx.measurement", "temperature_measurement")
	viper.SetDefault("influx.location", "catalyst")
	viper.SetDefault("influx.field", "temperature")
	viper.SetDefault("weather.ttl", "10m")
	viper.SetDefault("mqtt.topic", "stove/catalyst/temperature")
	viper.SetDefault("mqtt.client_id", "burn")
	viper.SetDefault("cloud.region", "us-west-2")
	viper.SetDefault("forecast.hours", 8.0)
	viper.SetDefault("forecast.fill_level", 100.0)
	viper.SetDefault("forecast.confidence", 0.15)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("metrics.addr", ":9090")
	viper.SetDefault("monitor.interval", "15m")
}
