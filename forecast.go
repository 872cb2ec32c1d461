package burn

import (
	"fmt"
	"math"
	"time"
)

// PredictionPoint is one step of a forecast with its confidence band.
type PredictionPoint struct {
	Time            time.Time `json:"time"`
	Temperature     float64   `json:"temperature"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
}

// window is a fixed capacity ring of the most recent SequenceLength feature
// vectors. push overwrites the oldest entry so the length never changes.
type window struct {
	buf  [SequenceLength]FeatureVector
	head int // index of the oldest entry
}

func newWindow(features []FeatureVector) *window {
	var w window

	copy(w.buf[:], features[len(features)-SequenceLength:])

	return &w
}

// at returns the i-th entry counting from the oldest.
func (w *window) at(i int) FeatureVector {
	return w.buf[(w.head+i)%SequenceLength]
}

func (w *window) push(f FeatureVector) {
	w.buf[w.head] = f
	w.head = (w.head + 1) % SequenceLength
}

// fill writes the window oldest first into dst, which must hold
// SequenceLength rows of FeatureWidth values.
func (w *window) fill(dst [][]float64) {
	for i := range SequenceLength {
		f := w.at(i)
		dst[i][0], dst[i][1], dst[i][2] = f.NormalizedTemp, f.RateOfChange, f.RollingAvg
	}
}

// Forecast rolls model forward from the last SequenceLength observations of
// recent for the given horizon, returning one normalized temperature per
// StepInterval. Each prediction is fed back as the newest window entry; cv is
// held fixed for the whole horizon.
//
// Predictions are clamped to the normalization range. A non-finite model
// output fails with ErrNonFinitePrediction.
func Forecast(model *Model, recent []Observation, cv ContextVector, hours float64) ([]float64, error) {
	if len(recent) < SequenceLength {
		return nil, &InsufficientHistoryError{Required: SequenceLength, Got: len(recent)}
	}

	steps := HorizonSteps(hours)
	if steps <= 0 {
		return nil, ErrInvalidHorizon
	}

	net, done, err := model.acquire()
	if err != nil {
		return nil, err
	}
	defer done()

	w := newWindow(EngineerFeatures(Temperatures(Latest(recent, SequenceLength))))
	ctx := cv.slice()

	seq := make([][]float64, SequenceLength)
	for i := range seq {
		seq[i] = make([]float64, FeatureWidth)
	}

	out := make([]float64, steps)

	for i := range out {
		w.fill(seq)

		raw := net.Predict(seq, ctx)
		if !finite(raw) {
			return nil, fmt.Errorf("step %d: %w", i+1, ErrNonFinitePrediction)
		}

		next := clamp01(raw)

		out[i] = next

		prev, last := w.at(SequenceLength-2), w.at(SequenceLength-1)
		w.push(FeatureVector{
			NormalizedTemp: next,
			RateOfChange:   (DenormalizeTemperature(next) - DenormalizeTemperature(last.NormalizedTemp)) / rateScale,
			RollingAvg:     clamp01((prev.NormalizedTemp + last.NormalizedTemp + next) / rollingWindow),
		})
	}

	return out, nil
}

// Predict forecasts with model and attaches DefaultConfidenceLevel bands.
// Points are stamped at StepInterval after the last observation of recent
// and their temperatures rounded to 0.1 °F.
func Predict(model *Model, recent []Observation, cv ContextVector, hours float64) ([]PredictionPoint, error) {
	return PredictWithConfidence(model, recent, cv, hours, DefaultConfidenceLevel)
}

// PredictWithConfidence is Predict with an explicit confidence level.
func PredictWithConfidence(model *Model, recent []Observation, cv ContextVector, hours, level float64) ([]PredictionPoint, error) {
	normalized, err := Forecast(model, recent, cv, hours)
	if err != nil {
		return nil, err
	}

	temps := make([]float64, len(normalized))
	for i, n := range normalized {
		temps[i] = math.Round(DenormalizeTemperature(n)*10) / 10
	}

	bands := ConfidenceBands(temps, level)
	start := recent[len(recent)-1].Time
	points := make([]PredictionPoint, len(temps))

	for i, t := range temps {
		points[i] = PredictionPoint{
			Time:            start.Add(time.Duration(i+1) * StepInterval),
			Temperature:     t,
			ConfidenceLower: bands[i].Lower,
			ConfidenceUpper: bands[i].Upper,
		}
	}

	return points, nil
}
