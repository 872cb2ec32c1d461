// Package burn implements a burn prediction engine for wood stoves and other
// slowly varying heating appliances. A small recurrent model is trained on a
// selected window of historical temperatures and then rolled forward to
// forecast the next several hours, which are banded and summarized into burn
// phase metrics such as the time until a reload is needed.
package burn

import (
	"math"
	"time"
)

// Contract constants shared by training, forecasting and analysis.
const (
	SequenceLength  = 60 // 5 hours at the step interval
	StepInterval    = 5 * time.Minute
	EncoderWidth    = 48
	HiddenWidth     = 24
	DropoutRate     = 0.2
	LearningRate    = 0.01
	Epochs          = 50
	BatchSize       = 8
	ValidationSplit = 0.2

	// MaxTemperature is the top of the normalization range in °F. The bottom
	// is zero.
	MaxTemperature = 800.0

	ActiveBurnThreshold = 400.0
	CoalingThreshold    = 200.0
	ReloadThreshold     = 300.0

	DefaultConfidenceLevel = 0.15
	DefaultHorizonHours    = 8.0

	// MinTrainingPoints is the shortest historical window Train accepts.
	MinTrainingPoints = SequenceLength + 10

	// ContextWidth is the number of entries in a ContextVector.
	ContextWidth = 4
	// FeatureWidth is the number of entries in a FeatureVector.
	FeatureWidth = 3
)

// HorizonSteps returns the number of forecast steps for a horizon in hours.
func HorizonSteps(hours float64) int {
	return int(math.Round(hours * 60 / StepInterval.Minutes()))
}

// StepsToHours converts a count of forecast steps to hours.
func StepsToHours(n int) float64 {
	return float64(n) * StepInterval.Minutes() / 60
}

// clamp01 maps NaN to 0.
func clamp01(x float64) float64 {
	switch {
	case x < 0, math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
