package burn

import (
	"errors"
	"fmt"
)

var (
	// ErrModelReleased is returned when a released Model is used or released
	// a second time.
	ErrModelReleased = errors.New("model released")

	// ErrTrainingActive is returned when a Session already has a training run
	// in progress.
	ErrTrainingActive = errors.New("training already in progress")

	// ErrNoModel is returned when a Session has no trained model to forecast
	// with.
	ErrNoModel = errors.New("no trained model")

	// ErrInvalidHorizon is returned for horizons that produce no forecast
	// steps.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrNonFinitePrediction is returned when the model produces NaN or an
	// infinity, usually because the recent observations contain one.
	ErrNonFinitePrediction = errors.New("non-finite prediction")
)

// InsufficientDataError reports a training window that is too short. It is
// not retryable; a longer window must be selected.
type InsufficientDataError struct {
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d data points for training, got %d", e.Required, e.Got)
}

// InsufficientHistoryError reports too few recent observations to seed a
// forecast.
type InsufficientHistoryError struct {
	Required int
	Got      int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("need at least %d recent data points, got %d", e.Required, e.Got)
}

// TrainingFailure reports a training run aborted by a non-finite loss. The
// partially trained model has already been discarded.
type TrainingFailure struct {
	Epoch int
	Loss  float64
}

func (e *TrainingFailure) Error() string {
	return fmt.Sprintf("training diverged at epoch %d: loss %v", e.Epoch, e.Loss)
}
