package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"endobit.io/table"

	"endobit.io/burn"
)

func newSpeciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species",
		Short: "List the firewood species and their heat content",
		Run: func(_ *cobra.Command, _ []string) {
			type row struct {
				Species string
				BTU     string `table:"\n(MBTU/cord)"`
				Density string
			}

			output := table.New()

			for _, name := range burn.Species() {
				w, _ := burn.LookupWood(name)
				output.Write(row{
					Species: w.Name,
					BTU:     fmt.Sprintf("%.1f", w.BTU),
					Density: w.Density,
				})
			}

			_ = output.Flush()
		},
	}
}
