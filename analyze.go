package burn

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Trend windows, in forecast steps.
const (
	risingSteps  = 12 // the first hour
	fallingStart = 48 // hour four onward
)

// Pattern thresholds.
const (
	risingFactor      = 1.05
	fallingFactor     = 0.8
	steadyRange       = 50.0 // °F
	reloadJump        = 50.0 // °F step increase that indicates a reload
	similarPatternMax = 0.15
)

// BurnMetrics are the derived forecast figures. Temperatures are °F and
// durations hours.
type BurnMetrics struct {
	CurrentTemp      float64 `json:"current_temp"`
	PredictedMax     float64 `json:"predicted_max"`
	PredictedMin     float64 `json:"predicted_min"`
	PredictedAvg     float64 `json:"predicted_avg"`
	PredictedEnd     float64 `json:"predicted_end"`
	ActiveBurnHours  float64 `json:"active_burn_hours"`
	CoalingHours     float64 `json:"coaling_hours"`
	HoursUntilReload float64 `json:"hours_until_reload"`
}

// Flags are independent pattern checks; more than one may be set.
type Flags struct {
	IsRising         bool `json:"is_rising"`
	IsSteady         bool `json:"is_steady"`
	IsFalling        bool `json:"is_falling"`
	HasReload        bool `json:"has_reload"`
	IsSimilarPattern bool `json:"is_similar_pattern"`
}

// AnalysisReport summarizes a forecast against its history.
type AnalysisReport struct {
	Metrics BurnMetrics `json:"metrics"`
	Flags   Flags       `json:"flags"`
	// PatternSimilarity is the relative difference, in percent, between the
	// forecast average and the selected training window average.
	PatternSimilarity float64    `json:"pattern_similarity"`
	Params            Conditions `json:"params"`
}

// Analyze derives burn metrics from a forecast, the historical observations
// it continues, the conditions it was made under and the window the model
// was trained on. It reports false when any input is empty, in which case
// analysis is unavailable. Analyze has no side effects.
func Analyze(predictions []PredictionPoint, historical []Observation, params Conditions,
	selected []Observation,
) (*AnalysisReport, bool) {
	if len(predictions) == 0 || len(historical) == 0 || len(selected) == 0 {
		return nil, false
	}

	temps := make([]float64, len(predictions))
	for i := range predictions {
		temps[i] = predictions[i].Temperature
	}

	current := historical[len(historical)-1].Temperature

	m := BurnMetrics{
		CurrentTemp:      current,
		PredictedMax:     floats.Max(temps),
		PredictedMin:     floats.Min(temps),
		PredictedAvg:     stat.Mean(temps, nil),
		PredictedEnd:     temps[len(temps)-1],
		HoursUntilReload: params.Horizon(),
	}

	var active, coaling int

	for _, t := range temps {
		switch {
		case t > ActiveBurnThreshold:
			active++
		case t > CoalingThreshold:
			coaling++
		}
	}

	m.ActiveBurnHours = StepsToHours(active)
	m.CoalingHours = StepsToHours(coaling)

	if i := slices.IndexFunc(temps, func(t float64) bool { return t < ReloadThreshold }); i >= 0 {
		m.HoursUntilReload = StepsToHours(i)
	}

	f := Flags{
		IsRising: stat.Mean(temps[:min(risingSteps, len(temps))], nil) > current*risingFactor,
		IsSteady: m.PredictedMax-m.PredictedMin < steadyRange,
	}

	if len(temps) > fallingStart {
		f.IsFalling = stat.Mean(temps[fallingStart:], nil) < current*fallingFactor
	}

	for i := 1; i < len(temps); i++ {
		if temps[i] > temps[i-1]+reloadJump {
			f.HasReload = true

			break
		}
	}

	selectedAvg := stat.Mean(Temperatures(selected), nil)

	similarity := 1.0 // no usable baseline reads as fully dissimilar
	if selectedAvg != 0 {
		similarity = math.Abs(m.PredictedAvg-selectedAvg) / selectedAvg
	}

	f.IsSimilarPattern = similarity < similarPatternMax

	return &AnalysisReport{
		Metrics:           m,
		Flags:             f,
		PatternSimilarity: similarity * 100,
		Params:            params,
	}, true
}
