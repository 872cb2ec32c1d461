package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"endobit.io/table"

	"endobit.io/burn"
)

func newForecastCmd() *cobra.Command {
	var (
		sel     selection
		cond    conditionFlags
		quiet   bool
		summary bool
	)

	cmd := cobra.Command{
		Use:   "forecast",
		Short: "Train on a history window and forecast the burn from the latest readings",
		Long: `The forecast command trains the model on the selected observation window, rolls
it forward from the last hour of readings and prints the predicted temperature
with its confidence band, followed by the burn analysis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := slog.Default()

			all, selected, err := sel.load(ctx, logger)
			if err != nil {
				return err
			}

			params, err := cond.conditions(ctx, logger)
			if err != nil {
				return err
			}

			session := burn.NewSession(burn.WithLogger(logger))
			defer session.Close()

			if _, err := session.Train(ctx, selected, nil); err != nil {
				return err
			}

			points, err := session.ForecastWithConfidence(all, params.Context(), params.Horizon(),
				viper.GetFloat64("forecast.confidence"))
			if err != nil {
				return err
			}

			if !quiet {
				type row struct {
					Time        string
					Temperature string `table:"\n(°F)"`
					Lower       string
					Upper       string
					Phase       string `table:",omitempty"`
				}

				output := table.New()

				for i, p := range points {
					output.Write(row{
						Time:        p.Time.Local().Format(time.Kitchen),
						Temperature: fmt.Sprintf("%.1f", p.Temperature),
						Lower:       fmt.Sprintf("%.1f", p.ConfidenceLower),
						Upper:       fmt.Sprintf("%.1f", p.ConfidenceUpper),
						Phase:       phase(p.Temperature),
					})

					if (i+1)%12 == 0 {
						output.Annotate(fmt.Sprintf("    -> %g hours\n", burn.StepsToHours(i+1)))
					}
				}

				_ = output.Flush()

				fmt.Println()
			}

			report, ok := burn.Analyze(points, all, params, selected)
			if !ok {
				return nil
			}

			if summary {
				fmt.Print(burn.Summary(report))
			} else {
				fmt.Println(burn.QuickSummary(report))
			}

			return nil
		},
	}

	sel.addFlags(&cmd)
	cond.addFlags(&cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "omit the forecast table")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the full analysis")

	return &cmd
}

func phase(temp float64) string {
	switch {
	case temp > burn.ActiveBurnThreshold:
		return "active"
	case temp > burn.CoalingThreshold:
		return "coaling"
	default:
		return ""
	}
}
