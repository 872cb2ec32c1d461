package burn

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/plot/vg"
)

func TestPlot(t *testing.T) {
	history := series(SequenceLength, func(i int) float64 { return float64(500 - i) })
	last := history[len(history)-1].Time

	p := NewPlotter(&PlotterOptions{
		Title:        "Stove",
		History:      history,
		Forecast:     points(temps(24, func(i int) float64 { return float64(440 - 6*i) })),
		Markers:      []time.Time{last},
		HistoryColor: color.Black,
	})

	plt, err := p.Plot()
	if err != nil {
		t.Fatalf("Plot() error = %v", err)
	}

	if plt.Title.Text != "Stove" || plt.X.Label.Text != "Hours" {
		t.Errorf("title %q, x label %q", plt.Title.Text, plt.X.Label.Text)
	}

	if err := plt.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(t.TempDir(), "burn.png")); err != nil {
		t.Errorf("Save() error = %v", err)
	}
}

func TestPlotNoData(t *testing.T) {
	if _, err := NewPlotter(&PlotterOptions{}).Plot(); err == nil {
		t.Error("Plot() with no data succeeded")
	}
}
