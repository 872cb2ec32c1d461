package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"endobit.io/table"

	"endobit.io/burn"
)

func newTrainCmd() *cobra.Command {
	var (
		sel    selection
		epochs int
		seed   uint64
	)

	cmd := cobra.Command{
		Use:   "train",
		Short: "Train a model on a temperature history and report the loss",
		Long: `The train command fits the burn model to the selected observation window and
shows the training and validation loss after every epoch. Models are not saved;
use forecast to train and predict in one step.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.Default()

			_, selected, err := sel.load(cmd.Context(), logger)
			if err != nil {
				return err
			}

			opts := []burn.TrainOption{burn.WithLogger(logger), burn.WithEpochs(epochs)}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, burn.WithSeed(seed))
			}

			session := burn.NewSession(opts...)
			defer session.Close()

			type row struct {
				Epoch    int
				Loss     string
				ValLoss  string
				Duration string `table:"\n(s)"`
			}

			output := table.New()
			start := time.Now()
			last := start

			model, err := session.Train(cmd.Context(), selected, func(p burn.Progress) {
				now := time.Now()
				output.Write(row{
					Epoch:    p.Epoch,
					Loss:     fmt.Sprintf("%.6f", p.TrainingLoss),
					ValLoss:  fmt.Sprintf("%.6f", p.ValidationLoss),
					Duration: fmt.Sprintf("%.1f", now.Sub(last).Seconds()),
				})
				last = now
			})

			_ = output.Flush()

			if err != nil {
				return err
			}

			fmt.Printf("\nTrained on %d examples in %s\n", model.Examples, time.Since(start).Round(time.Second))

			return nil
		},
	}

	sel.addFlags(&cmd)
	cmd.Flags().IntVar(&epochs, "epochs", burn.Epochs, "training epochs")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible runs")

	return &cmd
}
