package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"endobit.io/burn"
)

func newPlotCmd() *cobra.Command {
	var (
		sel      selection
		cond     conditionFlags
		output   string
		forecast bool
	)

	cmd := cobra.Command{
		Use:   "plot",
		Short: "Graph a temperature history, optionally with a forecast",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := slog.Default()

			all, selected, err := sel.load(ctx, logger)
			if err != nil {
				return err
			}

			opts := burn.PlotterOptions{History: all}

			if len(all) > 0 {
				opts.Title = all[0].Time.Local().Format(time.ANSIC)
			}

			if forecast {
				params, err := cond.conditions(ctx, logger)
				if err != nil {
					return err
				}

				session := burn.NewSession(burn.WithLogger(logger))
				defer session.Close()

				if _, err := session.Train(ctx, selected, nil); err != nil {
					return err
				}

				points, err := session.Forecast(all, params.Context(), params.Horizon())
				if err != nil {
					return err
				}

				opts.Forecast = points

				if report, ok := burn.Analyze(points, all, params, selected); ok &&
					report.Metrics.HoursUntilReload < params.Horizon() {
					opts.Markers = append(opts.Markers,
						points[0].Time.Add(time.Duration(report.Metrics.HoursUntilReload*float64(time.Hour))))
				}
			}

			plt, err := burn.NewPlotter(&opts).Plot()
			if err != nil {
				return err
			}

			return plt.Save(10*vg.Inch, 4*vg.Inch, output)
		},
	}

	sel.addFlags(&cmd)
	cond.addFlags(&cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "burn.png", "output file")
	cmd.Flags().BoolVar(&forecast, "forecast", false, "train and add a forecast with its confidence band")

	return &cmd
}
