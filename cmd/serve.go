package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"endobit.io/burn"
	"endobit.io/burn/server"
)

func newServeCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "serve",
		Short: "Serve the training, forecast and analysis HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.Default()

			gin.SetMode(gin.ReleaseMode)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			session := burn.NewSession(burn.WithLogger(logger), burn.WithMetrics(burn.NewMetrics(reg)))
			defer session.Close()

			mix, err := parseMix(viper.GetString("forecast.species"))
			if err != nil {
				return err
			}

			opts := []func(*server.Server){
				server.WithLogger(logger),
				server.WithGatherer(reg),
				server.WithDefaults(server.Defaults{
					Hours:      viper.GetFloat64("forecast.hours"),
					FillLevel:  viper.GetFloat64("forecast.fill_level"),
					Mix:        mix,
					Confidence: viper.GetFloat64("forecast.confidence"),
					Lookback:   6 * time.Hour,
				}),
			}

			if src := newInflux(logger); src != nil {
				defer src.Close()

				opts = append(opts, server.WithHistory(src))
			}

			if w := newWeather(logger); w != nil {
				opts = append(opts, server.WithWeather(w))
			}

			srv := http.Server{
				Addr:              viper.GetString("server.addr"),
				Handler:           server.New(session, opts...).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return listen(ctx, logger, &srv) })

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return &cmd
}

func metricsServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

// listen serves srv until ctx is done, then shuts it down.
func listen(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	errs := make(chan error, 1)

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}

	return ctx.Err()
}
