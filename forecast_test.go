package burn

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// trainedModel returns a quickly trained model for exercising forecasts.
func trainedModel(t *testing.T) *Model {
	t.Helper()

	model, err := Train(context.Background(), series(MinTrainingPoints, constant(400)), nil,
		WithSeed(7), WithEpochs(1))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	return model
}

func testContext() ContextVector {
	return Conditions{
		OutdoorTemp: 30,
		FillLevel:   75,
		FuelBTU:     MixBTU(DefaultMix()),
		At:          time.Date(2025, 1, 10, 21, 0, 0, 0, time.UTC),
	}.Context()
}

func TestForecastLength(t *testing.T) {
	model := trainedModel(t)
	recent := series(SequenceLength, constant(450))

	for _, tt := range []struct {
		hours float64
		want  int
	}{
		{8, 96},
		{4, 48},
		{1, 12},
		{0.5, 6},
	} {
		out, err := Forecast(model, recent, testContext(), tt.hours)
		if err != nil {
			t.Fatalf("Forecast(%v) error = %v", tt.hours, err)
		}

		if len(out) != tt.want {
			t.Errorf("Forecast(%v) = %d steps, want %d", tt.hours, len(out), tt.want)
		}

		for i, v := range out {
			if v < 0 || v > 1 {
				t.Errorf("Forecast(%v)[%d] = %v, out of [0,1]", tt.hours, i, v)
			}
		}
	}
}

func TestForecastUsesLatestWindow(t *testing.T) {
	model := trainedModel(t)

	short := series(SequenceLength, constant(350))
	long := append(series(40, constant(700)), short...)

	a, err := Forecast(model, short, testContext(), 1)
	if err != nil {
		t.Fatal(err)
	}

	b, err := Forecast(model, long, testContext(), 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs: %v != %v", i, a[i], b[i])
		}
	}
}

func TestForecastDeterministic(t *testing.T) {
	model := trainedModel(t)
	recent := series(SequenceLength, func(i int) float64 { return float64(200 + 5*i) })

	a, err := Forecast(model, recent, testContext(), 2)
	if err != nil {
		t.Fatal(err)
	}

	b, err := Forecast(model, recent, testContext(), 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs between runs: %v != %v", i, a[i], b[i])
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	model := trainedModel(t)

	_, err := Forecast(model, series(SequenceLength-1, constant(400)), testContext(), 8)

	var e *InsufficientHistoryError
	if !errors.As(err, &e) {
		t.Fatalf("error = %v, want *InsufficientHistoryError", err)
	}

	if e.Required != SequenceLength || e.Got != SequenceLength-1 {
		t.Errorf("error = %+v", e)
	}
}

func TestForecastInvalidHorizon(t *testing.T) {
	model := trainedModel(t)

	for _, hours := range []float64{0, -1, 0.01} {
		if _, err := Forecast(model, series(SequenceLength, constant(400)), testContext(), hours); !errors.Is(err, ErrInvalidHorizon) {
			t.Errorf("Forecast(%v) error = %v, want ErrInvalidHorizon", hours, err)
		}
	}
}

func TestForecastNonFinite(t *testing.T) {
	model := trainedModel(t)

	recent := series(SequenceLength, constant(400))
	recent[SequenceLength/2].Temperature = math.NaN()

	points, err := Forecast(model, recent, testContext(), 1)
	if !errors.Is(err, ErrNonFinitePrediction) {
		t.Errorf("Forecast() = %v, %v; want ErrNonFinitePrediction", points, err)
	}
}

func TestForecastReleased(t *testing.T) {
	model := trainedModel(t)

	if err := model.Release(); err != nil {
		t.Fatal(err)
	}

	if _, err := Forecast(model, series(SequenceLength, constant(400)), testContext(), 1); !errors.Is(err, ErrModelReleased) {
		t.Errorf("error = %v, want ErrModelReleased", err)
	}
}

func TestPredict(t *testing.T) {
	model := trainedModel(t)
	recent := series(SequenceLength, constant(400))
	last := recent[len(recent)-1].Time

	points, err := Predict(model, recent, testContext(), 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != 24 {
		t.Fatalf("len = %d, want 24", len(points))
	}

	for i, p := range points {
		if want := last.Add(time.Duration(i+1) * StepInterval); !p.Time.Equal(want) {
			t.Errorf("points[%d].Time = %v, want %v", i, p.Time, want)
		}

		if p.Temperature < 0 || p.Temperature > MaxTemperature {
			t.Errorf("points[%d].Temperature = %v, out of range", i, p.Temperature)
		}

		if !(p.ConfidenceLower <= p.Temperature && p.Temperature <= p.ConfidenceUpper) {
			t.Errorf("points[%d] band %v..%v does not contain %v", i, p.ConfidenceLower, p.ConfidenceUpper, p.Temperature)
		}
	}
}

func TestWindowRing(t *testing.T) {
	features := make([]FeatureVector, SequenceLength+5)
	for i := range features {
		features[i].NormalizedTemp = float64(i)
	}

	w := newWindow(features)

	if got := w.at(0).NormalizedTemp; got != 5 {
		t.Fatalf("oldest = %v, want 5", got)
	}

	w.push(FeatureVector{NormalizedTemp: 100})

	if got := w.at(0).NormalizedTemp; got != 6 {
		t.Errorf("oldest after push = %v, want 6", got)
	}

	if got := w.at(SequenceLength - 1).NormalizedTemp; got != 100 {
		t.Errorf("newest after push = %v, want 100", got)
	}
}

func TestHorizonSteps(t *testing.T) {
	for _, tt := range []struct {
		hours float64
		want  int
	}{
		{8, 96},
		{4, 48},
		{2, 24},
		{0.5, 6},
		{0, 0},
	} {
		if got := HorizonSteps(tt.hours); got != tt.want {
			t.Errorf("HorizonSteps(%v) = %d, want %d", tt.hours, got, tt.want)
		}
	}

	if got := StepsToHours(24); got != 2 {
		t.Errorf("StepsToHours(24) = %v, want 2", got)
	}
}
