// Package influx reads stove temperature history from, and records live
// readings to, an InfluxDB v2 bucket.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"endobit.io/app/log"

	"endobit.io/burn"
)

// Config names the bucket and series holding the thermocouple readings.
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Location    string
	Field       string
}

// Defaults fills unset series names with the values the stove logger writes.
func (c Config) Defaults() Config {
	if c.Bucket == "" {
		c.Bucket = "temperature_bucket"
	}

	if c.Measurement == "" {
		c.Measurement = "temperature_measurement"
	}

	if c.Location == "" {
		c.Location = "catalyst"
	}

	if c.Field == "" {
		c.Field = "temperature"
	}

	return c
}

// Source queries and records observations.
type Source struct {
	logger *slog.Logger
	config Config
	client influxdb2.Client
	query  api.QueryAPI
	write  api.WriteAPIBlocking
}

// WithLogger is an option setting function for New.
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger
	}
}

// New returns a Source for cfg. Close it when done.
func New(cfg Config, opts ...func(*Source)) *Source {
	cfg = cfg.Defaults()

	s := Source{
		logger: slog.New(slog.DiscardHandler),
		config: cfg,
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
	}

	for _, o := range opts {
		o(&s)
	}

	s.query = s.client.QueryAPI(cfg.Org)
	s.write = s.client.WriteAPIBlocking(cfg.Org, cfg.Bucket)

	return &s
}

// Close releases the client connections.
func (s *Source) Close() {
	s.client.Close()
}

// Flux returns the query for readings since start, averaged into StepInterval
// windows.
func (c Config) Flux(start time.Time) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r["_measurement"] == %q)
  |> filter(fn: (r) => r["location"] == %q)
  |> filter(fn: (r) => r["_field"] == %q)
  |> aggregateWindow(every: %s, fn: mean, createEmpty: false)
  |> yield(name: "mean")`,
		c.Bucket, start.UTC().Format(time.RFC3339), c.Measurement, c.Location, c.Field,
		fluxDuration(burn.StepInterval))
}

func fluxDuration(d time.Duration) string {
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// History returns the observations of the last lookback, oldest first, with
// temperatures rounded to 0.1 °F.
func (s *Source) History(ctx context.Context, lookback time.Duration) ([]burn.Observation, error) {
	flux := s.config.Flux(time.Now().Add(-lookback))
	s.logger.Log(ctx, log.LevelTrace, "flux", "query", flux)

	result, err := s.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("cannot query history: %w", err)
	}

	defer result.Close()

	var obs []burn.Observation

	for result.Next() {
		rec := result.Record()

		v, ok := rec.Value().(float64)
		if !ok || math.IsNaN(v) {
			s.logger.Warn("skipping record", "time", rec.Time(), "value", rec.Value())

			continue
		}

		obs = append(obs, burn.Observation{
			Time:        rec.Time(),
			Temperature: math.Round(v*10) / 10,
		})
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("cannot read history: %w", err)
	}

	slices.SortFunc(obs, func(a, b burn.Observation) int { return a.Time.Compare(b.Time) })

	s.logger.Debug("history", "lookback", lookback, "observations", len(obs))

	return obs, nil
}

// Current returns the latest observation of the last hour. It reports false
// if there is none.
func (s *Source) Current(ctx context.Context) (burn.Observation, bool, error) {
	obs, err := s.History(ctx, time.Hour)
	if err != nil {
		return burn.Observation{}, false, err
	}

	if len(obs) == 0 {
		return burn.Observation{}, false, nil
	}

	return obs[len(obs)-1], true, nil
}

// Record writes observations to the bucket.
func (s *Source) Record(ctx context.Context, obs ...burn.Observation) error {
	for _, o := range obs {
		p := influxdb2.NewPoint(s.config.Measurement,
			map[string]string{"location": s.config.Location},
			map[string]any{s.config.Field: o.Temperature},
			o.Time)

		if err := s.write.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("cannot record observation: %w", err)
		}
	}

	return nil
}

// Stats summarizes a temperature history. Values are rounded to 0.1 °F.
type Stats struct {
	Current float64 `json:"current"`
	Peak    float64 `json:"peak"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Summarize returns the Stats of obs. Empty input yields zero Stats.
func Summarize(obs []burn.Observation) Stats {
	if len(obs) == 0 {
		return Stats{}
	}

	temps := burn.Temperatures(obs)

	return Stats{
		Current: tenths(temps[len(temps)-1]),
		Peak:    tenths(floats.Max(temps)),
		Average: tenths(stat.Mean(temps, nil)),
		Count:   len(temps),
	}
}

func tenths(v float64) float64 {
	return math.Round(v*10) / 10
}
