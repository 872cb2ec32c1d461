package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"endobit.io/app/log"

	"endobit.io/burn"
	"endobit.io/burn/cloud"
	"endobit.io/burn/influx"
	"endobit.io/burn/thermo"
	"endobit.io/burn/weather"
)

// keptObservations bounds the live history held by the monitor.
const keptObservations = 4 * burn.SequenceLength

type monitor struct {
	Logger   *slog.Logger
	Session  *burn.Session
	Params   burn.Conditions
	Selected []burn.Observation
	Weather  *weather.Client // refreshes Params.OutdoorTemp when set
	Recorder *influx.Source
	Output   io.Writer
	Interval time.Duration

	mu       sync.Mutex
	history  []burn.Observation
	forecast time.Time
}

func (m *monitor) observe(ctx context.Context, o burn.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, o)
	if len(m.history) > keptObservations {
		m.history = m.history[len(m.history)-keptObservations:]
	}

	m.Logger.Info("observation",
		slog.Time("time", o.Time),
		log.Format("%.1f°F", "temperature", o.Temperature))

	if m.Output != nil {
		b, err := json.Marshal(o)
		if err != nil {
			m.Logger.Error("cannot marshal", "error", err)
		}

		_, _ = m.Output.Write(b)
		_, _ = m.Output.Write([]byte("\n"))
	}

	if m.Recorder != nil {
		if err := m.Recorder.Record(ctx, o); err != nil {
			m.Logger.Error("cannot record", "error", err)
		}
	}

	if len(m.history) < burn.SequenceLength || time.Since(m.forecast) < m.Interval {
		return
	}

	m.forecast = time.Now()
	m.predict(ctx)
}

func (m *monitor) predict(ctx context.Context) {
	if m.Weather != nil {
		if r, err := m.Weather.Current(ctx); err != nil {
			m.Logger.Warn("cannot refresh outdoor temperature", "error", err)
		} else {
			m.Params.OutdoorTemp = r.Temperature
		}
	}

	m.Params.At = time.Now()

	points, err := m.Session.Forecast(m.history, m.Params.Context(), m.Params.Horizon())
	if err != nil {
		m.Logger.Error("cannot forecast", "error", err)

		return
	}

	report, ok := burn.Analyze(points, m.history, m.Params, m.Selected)
	if !ok {
		return
	}

	attrs := []slog.Attr{
		log.Format("%.0f°F", "max", report.Metrics.PredictedMax),
		log.Format("%.0f°F", "end", report.Metrics.PredictedEnd),
		log.Format("%.1fh", "reload", report.Metrics.HoursUntilReload),
		log.Format("%.1f°F", "outdoor", m.Params.OutdoorTemp),
	}

	m.Logger.LogAttrs(ctx, slog.LevelInfo, burn.QuickSummary(report), attrs...)
}

func newMonitorCmd() *cobra.Command {
	var (
		sel      selection
		cond     conditionFlags
		output   string
		useCloud bool
		record   bool
	)

	cmd := cobra.Command{
		Use:   "monitor",
		Short: "Follow live stove readings and forecast the burn as they arrive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.Default()
			thermo.SetLogger(logger.With("component", "mqtt"))

			g, ctx := errgroup.WithContext(cmd.Context())

			history, selected, err := sel.load(ctx, logger)
			if err != nil {
				return err
			}

			params, err := cond.conditions(ctx, logger)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			session := burn.NewSession(burn.WithLogger(logger), burn.WithMetrics(burn.NewMetrics(reg)))
			defer session.Close()

			if _, err := session.Train(ctx, selected, nil); err != nil {
				return err
			}

			m := monitor{
				Logger:   logger,
				Session:  session,
				Params:   params,
				Selected: selected,
				Interval: viper.GetDuration("monitor.interval"),
				history:  burn.Latest(history, keptObservations),
			}

			if cond.outdoor == "" {
				m.Weather = newWeather(logger)
			}

			if record {
				if m.Recorder = newInflux(logger); m.Recorder == nil {
					return errors.New("--record needs InfluxDB configured")
				}
				defer m.Recorder.Close()
			}

			if output != "" {
				fout, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer fout.Close()

				m.Output = fout
			}

			opts, err := mqttOptions(ctx, logger, useCloud)
			if err != nil {
				return err
			}

			client := mqtt.NewClient(opts)
			defer client.Disconnect(250)

			feed := thermo.NewFeed(client,
				thermo.WithLogger(logger),
				thermo.WithTopic(viper.GetString("mqtt.topic")))

			g.Go(func() error {
				return feed.Run(ctx, func(o burn.Observation) { m.observe(ctx, o) })
			})

			if addr := viper.GetString("metrics.addr"); addr != "" {
				g.Go(func() error {
					return listen(ctx, logger, metricsServer(addr, reg))
				})
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			logger.Info("interrupted, exiting")

			return nil
		},
	}

	sel.addFlags(&cmd)
	cond.addFlags(&cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "append observations to file (JSON lines)")
	cmd.Flags().BoolVar(&useCloud, "cloud", false, "connect through the appliance cloud instead of mqtt.broker")
	cmd.Flags().BoolVar(&record, "record", false, "record observations to InfluxDB")
	cmd.Flags().Duration("interval", 15*time.Minute, "minimum time between forecasts")
	_ = viper.BindPFlag("monitor.interval", cmd.Flags().Lookup("interval"))

	return &cmd
}

func mqttOptions(ctx context.Context, logger *slog.Logger, useCloud bool) (*mqtt.ClientOptions, error) {
	if !useCloud {
		broker := viper.GetString("mqtt.broker")
		if broker == "" {
			return nil, errors.New("mqtt.broker is not configured")
		}

		return thermo.ClientOptions(logger, broker,
			viper.GetString("mqtt.client_id"),
			viper.GetString("mqtt.username"),
			viper.GetString("mqtt.password")), nil
	}

	c, err := cloud.NewClient(ctx,
		cloud.WithLogger(logger),
		cloud.Credentials(viper.GetString("cloud.username"), viper.GetString("cloud.password")),
		cloud.ClientID(viper.GetString("cloud.client_id")),
		cloud.Region(viper.GetString("cloud.region")),
		cloud.URL(viper.GetString("cloud.base_url")))
	if err != nil {
		return nil, err
	}

	return c.MQTT(ctx)
}
