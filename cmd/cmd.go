package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"endobit.io/burn"
	"endobit.io/burn/influx"
	"endobit.io/burn/weather"
)

func influxConfig() influx.Config {
	return influx.Config{
		URL:         viper.GetString("influx.url"),
		Token:       viper.GetString("influx.token"),
		Org:         viper.GetString("influx.org"),
		Bucket:      viper.GetString("influx.bucket"),
		Measurement: viper.GetString("influx.measurement"),
		Location:    viper.GetString("influx.location"),
		Field:       viper.GetString("influx.field"),
	}
}

// newInflux returns the configured history source, or nil if InfluxDB is not
// configured.
func newInflux(logger *slog.Logger) *influx.Source {
	cfg := influxConfig()
	if cfg.Token == "" || cfg.Org == "" {
		return nil
	}

	return influx.New(cfg, influx.WithLogger(logger))
}

// newWeather returns the configured weather client, or nil if no location is
// configured.
func newWeather(logger *slog.Logger) *weather.Client {
	if !viper.IsSet("weather.latitude") || !viper.IsSet("weather.longitude") {
		return nil
	}

	return weather.New(viper.GetFloat64("weather.latitude"), viper.GetFloat64("weather.longitude"),
		weather.WithLogger(logger),
		weather.WithTTL(viper.GetDuration("weather.ttl")))
}

// selection are the flags choosing the training window.
type selection struct {
	input    string
	lookback float64
	from, to string
}

func (s *selection) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.input, "input", "i", "", "observation log (JSON lines), InfluxDB is used if empty")
	cmd.Flags().Float64Var(&s.lookback, "lookback", 24, "hours of InfluxDB history to read")
	cmd.Flags().StringVar(&s.from, "from", "", "start of the training window (RFC3339)")
	cmd.Flags().StringVar(&s.to, "to", "", "end of the training window (RFC3339)")
}

// load returns all observations read and the selected window of them.
func (s *selection) load(ctx context.Context, logger *slog.Logger) (all, selected []burn.Observation, err error) {
	if s.input != "" {
		fin, err := os.Open(s.input)
		if err != nil {
			return nil, nil, err
		}
		defer fin.Close()

		all, err = burn.ReadObservations(fin)
		if err != nil {
			return nil, nil, err
		}
	} else {
		src := newInflux(logger)
		if src == nil {
			return nil, nil, errors.New("no --input and InfluxDB is not configured")
		}
		defer src.Close()

		all, err = src.History(ctx, time.Duration(s.lookback*float64(time.Hour)))
		if err != nil {
			return nil, nil, err
		}
	}

	if s.from == "" && s.to == "" {
		return all, all, nil
	}

	from, to := time.Time{}, time.Now()

	if s.from != "" {
		if from, err = time.Parse(time.RFC3339, s.from); err != nil {
			return nil, nil, fmt.Errorf("invalid --from (use RFC3339): %w", err)
		}
	}

	if s.to != "" {
		if to, err = time.Parse(time.RFC3339, s.to); err != nil {
			return nil, nil, fmt.Errorf("invalid --to (use RFC3339): %w", err)
		}
	}

	return all, burn.Window(all, from, to), nil
}

// parseMix parses "Species:percent,..." or a single species name.
func parseMix(s string) ([]burn.MixPart, error) {
	if strings.TrimSpace(s) == "" {
		return burn.DefaultMix(), nil
	}

	var mix []burn.MixPart

	for _, part := range strings.Split(s, ",") {
		name, pct, found := strings.Cut(part, ":")
		name = strings.TrimSpace(name)

		if _, ok := burn.LookupWood(name); !ok {
			return nil, fmt.Errorf("unknown species %q", name)
		}

		p := 100.0

		if found {
			v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid percentage for %s: %w", name, err)
			}

			p = v
		}

		mix = append(mix, burn.MixPart{Species: name, Percentage: p})
	}

	if !burn.ValidMix(mix) {
		return nil, fmt.Errorf("species percentages in %q do not total 100", s)
	}

	return mix, nil
}

// conditionFlags are the forecast parameters. Unset flags fall back to the
// forecast.* configuration, and the outdoor temperature to the weather API.
type conditionFlags struct {
	outdoor string
	fill    float64
	species string
	hours   float64
}

func (c *conditionFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.outdoor, "outdoor", "", "outdoor temperature (°F), fetched if empty")
	cmd.Flags().Float64Var(&c.fill, "fill", 0, "firebox fill level (percent)")
	cmd.Flags().StringVar(&c.species, "species", "", `wood mix, e.g. "Red Oak:60,Ash:40"`)
	cmd.Flags().Float64Var(&c.hours, "hours", 0, "forecast horizon (hours)")
}

func (c *conditionFlags) conditions(ctx context.Context, logger *slog.Logger) (burn.Conditions, error) {
	cond := burn.Conditions{
		FillLevel:       c.fill,
		PredictionHours: c.hours,
	}

	if cond.FillLevel <= 0 {
		cond.FillLevel = viper.GetFloat64("forecast.fill_level")
	}

	if cond.PredictionHours <= 0 {
		cond.PredictionHours = viper.GetFloat64("forecast.hours")
	}

	species := c.species
	if species == "" {
		species = viper.GetString("forecast.species")
	}

	mix, err := parseMix(species)
	if err != nil {
		return cond, err
	}

	cond.FuelBTU = burn.MixBTU(mix)

	if c.outdoor != "" {
		if cond.OutdoorTemp, err = strconv.ParseFloat(c.outdoor, 64); err != nil {
			return cond, fmt.Errorf("invalid --outdoor: %w", err)
		}

		return cond, nil
	}

	w := newWeather(logger)
	if w == nil {
		return cond, errors.New("no --outdoor and weather location is not configured")
	}

	r, err := w.Current(ctx)
	if err != nil {
		return cond, err
	}

	cond.OutdoorTemp = r.Temperature

	logger.Info("outdoor temperature", "temperature", r.Temperature, "wind", r.WindSpeed)

	return cond, nil
}
