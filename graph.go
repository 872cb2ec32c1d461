package burn

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotterOptions is used to configure the Plotter.
type PlotterOptions struct {
	Title         string
	Period        Period
	HistoryColor  color.Color
	ForecastColor color.Color
	BandColor     color.Color
	MarkerColor   color.Color
	History       []Observation
	Forecast      []PredictionPoint
	Markers       []time.Time
}

// Plotter graphs observed temperatures and a forecast with its confidence
// band.
type Plotter struct {
	options PlotterOptions
	plot    *plot.Plot
	t0      time.Time
}

// Period is used to set the x-axis time period.
type Period int

// The Period can be hours, minutes, or days. The default is hours.
const (
	ByHour Period = iota
	ByMinute
	ByDay
)

// NewPlotter returns a Plotter configured with options. Unset colors use the
// defaults.
func NewPlotter(options *PlotterOptions) *Plotter {
	p := Plotter{ //nolint:varnamelen
		options: PlotterOptions{
			HistoryColor:  color.RGBA{R: 255, A: 255},
			ForecastColor: color.RGBA{B: 255, A: 255},
			BandColor:     color.Gray{200},
			MarkerColor:   color.RGBA{G: 100, A: 255},
		},
	}

	p.options.Title = options.Title
	p.options.Period = options.Period
	p.options.History = options.History
	p.options.Forecast = options.Forecast
	p.options.Markers = options.Markers

	if options.HistoryColor != nil {
		p.options.HistoryColor = options.HistoryColor
	}

	if options.ForecastColor != nil {
		p.options.ForecastColor = options.ForecastColor
	}

	if options.BandColor != nil {
		p.options.BandColor = options.BandColor
	}

	if options.MarkerColor != nil {
		p.options.MarkerColor = options.MarkerColor
	}

	return &p
}

// Plot returns the plot.Plot for the data given to the Plotter. The caller
// should call plot.Save to create the graph files. This allows the caller to
// define the Plot size and graphics format.
func (p *Plotter) Plot() (*plot.Plot, error) {
	if len(p.options.History) == 0 && len(p.options.Forecast) == 0 {
		return nil, errors.New("no data")
	}

	if len(p.options.History) > 0 {
		p.t0 = p.options.History[0].Time
	} else {
		p.t0 = p.options.Forecast[0].Time
	}

	p.plot = plot.New()
	p.plot.Title.Text = p.options.Title
	p.plot.X.Label.Text = p.axisLabel()
	p.plot.Y.Label.Text = "Temperature (°F)"

	if err := p.band(); err != nil {
		return nil, fmt.Errorf("band: %w", err)
	}

	if err := p.history(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	if err := p.forecast(); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	if err := p.markers(); err != nil {
		return nil, fmt.Errorf("markers: %w", err)
	}

	p.plot.Add(plotter.NewGrid())

	return p.plot, nil
}

func (p *Plotter) axisLabel() string {
	switch p.options.Period {
	case ByMinute:
		return "Minutes"
	case ByDay:
		return "Days"
	default:
		return "Hours"
	}
}

func (p *Plotter) x(t time.Time) float64 {
	d := t.Sub(p.t0)

	switch p.options.Period {
	case ByMinute:
		return d.Minutes()
	case ByDay:
		return d.Hours() / 24
	default:
		return d.Hours()
	}
}

func (p *Plotter) history() error {
	if len(p.options.History) == 0 {
		return nil
	}

	data := make(plotter.XYs, len(p.options.History))
	for i, o := range p.options.History {
		data[i].X = p.x(o.Time)
		data[i].Y = o.Temperature
	}

	line, err := plotter.NewLine(data)
	if err != nil {
		return err
	}

	line.Color = p.options.HistoryColor
	p.plot.Add(line)
	p.plot.Legend.Add("observed", line)

	return nil
}

func (p *Plotter) forecast() error {
	if len(p.options.Forecast) == 0 {
		return nil
	}

	data := make(plotter.XYs, len(p.options.Forecast))
	for i, f := range p.options.Forecast {
		data[i].X = p.x(f.Time)
		data[i].Y = f.Temperature
	}

	line, err := plotter.NewLine(data)
	if err != nil {
		return err
	}

	line.Color = p.options.ForecastColor
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.plot.Add(line)
	p.plot.Legend.Add("forecast", line)

	return nil
}

// band draws the confidence interval as a filled polygon, upper bound left
// to right then lower bound back.
func (p *Plotter) band() error {
	n := len(p.options.Forecast)
	if n == 0 {
		return nil
	}

	outline := make(plotter.XYs, 2*n)

	for i, f := range p.options.Forecast {
		outline[i].X = p.x(f.Time)
		outline[i].Y = f.ConfidenceUpper
		outline[2*n-1-i].X = p.x(f.Time)
		outline[2*n-1-i].Y = f.ConfidenceLower
	}

	poly, err := plotter.NewPolygon(outline)
	if err != nil {
		return err
	}

	poly.Color = p.options.BandColor
	poly.LineStyle.Width = 0
	p.plot.Add(poly)
	p.plot.Legend.Add("confidence", poly)

	return nil
}

func (p *Plotter) markers() error {
	if len(p.options.Markers) == 0 {
		return nil // markers are optional
	}

	marks := make(plotter.XYs, len(p.options.Markers))
	for i, m := range p.options.Markers {
		marks[i].X = p.x(m)
		marks[i].Y = ReloadThreshold
	}

	s, err := plotter.NewScatter(marks)
	if err != nil {
		return err
	}

	s.Shape = draw.CrossGlyph{}
	s.Radius = vg.Points(4)
	s.Color = p.options.MarkerColor
	p.plot.Add(s)
	p.plot.Legend.Add("reload", s)

	return nil
}
