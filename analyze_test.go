package burn

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func points(temps []float64) []PredictionPoint {
	t0 := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	bands := ConfidenceBands(temps, DefaultConfidenceLevel)
	out := make([]PredictionPoint, len(temps))

	for i, t := range temps {
		out[i] = PredictionPoint{
			Time:            t0.Add(time.Duration(i+1) * StepInterval),
			Temperature:     t,
			ConfidenceLower: bands[i].Lower,
			ConfidenceUpper: bands[i].Upper,
		}
	}

	return out
}

func temps(n int, fn func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}

	return out
}

func TestAnalyzeReload(t *testing.T) {
	forecast := temps(96, func(i int) float64 {
		if i < 40 {
			return 500 - float64(i)*4
		}

		return 250
	})

	report, ok := Analyze(points(forecast), series(SequenceLength, constant(500)),
		Conditions{PredictionHours: 8}, series(100, constant(450)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	if got, want := report.Metrics.HoursUntilReload, 40.0*5/60; math.Abs(got-want) > 1e-9 {
		t.Errorf("HoursUntilReload = %v, want %v", got, want)
	}

	if !strings.Contains(Summary(report), "3.3 hours") {
		t.Errorf("summary does not mention 3.3 hours:\n%s", Summary(report))
	}
}

func TestAnalyzeReloadAtStart(t *testing.T) {
	report, ok := Analyze(points(temps(24, constant(250))), series(SequenceLength, constant(260)),
		Conditions{PredictionHours: 2}, series(100, constant(250)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	if report.Metrics.HoursUntilReload != 0 {
		t.Errorf("HoursUntilReload = %v, want 0", report.Metrics.HoursUntilReload)
	}
}

func TestAnalyzeNoReload(t *testing.T) {
	report, ok := Analyze(points(temps(96, constant(350))), series(SequenceLength, constant(350)),
		Conditions{PredictionHours: 8}, series(100, constant(350)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	if report.Metrics.HoursUntilReload != 8 {
		t.Errorf("HoursUntilReload = %v, want 8", report.Metrics.HoursUntilReload)
	}

	if !report.Flags.IsSteady {
		t.Error("IsSteady = false for a flat forecast")
	}

	if !report.Flags.IsSimilarPattern || report.PatternSimilarity != 0 {
		t.Errorf("similarity = %v (%v), want 0 (true)", report.PatternSimilarity, report.Flags.IsSimilarPattern)
	}

	if !strings.Contains(QuickSummary(report), "no reload needed") {
		t.Errorf("QuickSummary() = %q", QuickSummary(report))
	}
}

func TestAnalyzePhases(t *testing.T) {
	forecast := temps(96, func(i int) float64 {
		switch {
		case i < 24:
			return 450
		case i < 60:
			return 250
		default:
			return 150
		}
	})

	report, ok := Analyze(points(forecast), series(SequenceLength, constant(460)),
		Conditions{}, series(100, constant(300)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	m := report.Metrics

	if m.ActiveBurnHours != 2 {
		t.Errorf("ActiveBurnHours = %v, want 2", m.ActiveBurnHours)
	}

	if m.CoalingHours != 3 {
		t.Errorf("CoalingHours = %v, want 3", m.CoalingHours)
	}

	if m.ActiveBurnHours+m.CoalingHours > StepsToHours(len(forecast)) {
		t.Error("phase hours exceed the horizon")
	}

	if m.PredictedMax != 450 || m.PredictedMin != 150 || m.PredictedEnd != 150 || m.CurrentTemp != 460 {
		t.Errorf("metrics = %+v", m)
	}

	if !report.Flags.IsFalling {
		t.Error("IsFalling = false")
	}

	if report.Flags.IsRising || report.Flags.IsSteady {
		t.Errorf("flags = %+v", report.Flags)
	}
}

func TestAnalyzeFlags(t *testing.T) {
	rising := temps(24, func(i int) float64 { return 300 + float64(i)*10 })

	report, ok := Analyze(points(rising), series(SequenceLength, constant(300)),
		Conditions{PredictionHours: 2}, series(100, constant(300)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	if !report.Flags.IsRising {
		t.Error("IsRising = false")
	}

	if report.Flags.IsFalling {
		t.Error("IsFalling = true for a two hour forecast")
	}

	reload := temps(24, func(i int) float64 {
		if i == 10 {
			return 500
		}

		return 300
	})

	report, _ = Analyze(points(reload), series(SequenceLength, constant(300)),
		Conditions{PredictionHours: 2}, series(100, constant(300)))

	if !report.Flags.HasReload {
		t.Error("HasReload = false")
	}
}

func TestAnalyzeZeroBaseline(t *testing.T) {
	report, ok := Analyze(points(temps(12, constant(300))), series(SequenceLength, constant(300)),
		Conditions{PredictionHours: 1}, series(100, constant(0)))
	if !ok {
		t.Fatal("Analyze() not ok")
	}

	if report.Flags.IsSimilarPattern {
		t.Error("IsSimilarPattern = true against an all zero window")
	}

	if math.IsInf(report.PatternSimilarity, 0) || math.IsNaN(report.PatternSimilarity) {
		t.Errorf("PatternSimilarity = %v, want finite", report.PatternSimilarity)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	full := points(temps(12, constant(300)))
	obs := series(SequenceLength, constant(300))

	for name, fn := range map[string]func() bool{
		"predictions": func() bool { _, ok := Analyze(nil, obs, Conditions{}, obs); return ok },
		"historical":  func() bool { _, ok := Analyze(full, nil, Conditions{}, obs); return ok },
		"selected":    func() bool { _, ok := Analyze(full, obs, Conditions{}, nil); return ok },
	} {
		if fn() {
			t.Errorf("Analyze() with empty %s reported ok", name)
		}
	}

	if Summary(nil) != "" || QuickSummary(nil) != "" {
		t.Error("nil report should summarize as empty")
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	forecast := points(temps(96, func(i int) float64 { return 600 - float64(i)*5 }))
	hist := series(SequenceLength, constant(600))
	sel := series(200, func(i int) float64 { return float64(300 + i) })
	params := Conditions{OutdoorTemp: 10, FillLevel: 40, FuelBTU: 20, PredictionHours: 8}

	a, _ := Analyze(forecast, hist, params, sel)
	b, _ := Analyze(forecast, hist, params, sel)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("Analyze() not idempotent:\n%+v\n%+v", a, b)
	}

	s := Summary(a)
	for _, want := range []string{"Reload Recommended", "Cold outdoor temps", "Partial load"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
