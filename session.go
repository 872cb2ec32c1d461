package burn

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Session owns at most one trained Model and at most one training run.
// Starting a new run releases the previous Model first.
type Session struct {
	mu      sync.Mutex
	model   *Model
	run     *TrainingRun
	opts    []TrainOption
	epochs  int
	logger  *slog.Logger
	metrics *Metrics
}

// NewSession returns an empty Session. The options are applied to every
// training run it starts.
func NewSession(opts ...TrainOption) *Session {
	t := newTrainer(opts)

	return &Session{
		opts:    opts,
		epochs:  t.epochs,
		logger:  t.logger,
		metrics: t.metrics,
	}
}

// TrainingRun is a training task running in the background. Progress
// delivers one event per epoch in order and is closed when the run ends.
type TrainingRun struct {
	ID       string
	Progress <-chan Progress

	cancel context.CancelFunc
	done   chan struct{}
	model  *Model
	err    error
}

// Cancel abandons the run at the next epoch boundary.
func (r *TrainingRun) Cancel() {
	r.cancel()
}

// Done is closed when the run has finished.
func (r *TrainingRun) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its Model, which the
// Session now owns, or the error that ended it.
func (r *TrainingRun) Wait() (*Model, error) {
	<-r.done

	return r.model, r.err
}

// StartTraining releases any Model the session holds and starts training on
// obs in the background. It fails immediately with *InsufficientDataError if
// obs is too short and with ErrTrainingActive if a run is already going.
func (s *Session) StartTraining(ctx context.Context, obs []Observation) (*TrainingRun, error) {
	if len(obs) < MinTrainingPoints {
		return nil, &InsufficientDataError{Required: MinTrainingPoints, Got: len(obs)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		return nil, ErrTrainingActive
	}

	if s.model != nil {
		if err := s.model.Release(); err != nil && !errors.Is(err, ErrModelReleased) {
			return nil, err
		}

		s.model = nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	progress := make(chan Progress, s.epochs)

	run := TrainingRun{
		ID:       uuid.NewString(),
		Progress: progress,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.run = &run

	go func() {
		defer cancel()

		model, err := Train(runCtx, obs, progress, s.opts...)
		close(progress)

		s.finish(&run, model, err)
	}()

	s.logger.Info("training started", "run", run.ID, "observations", len(obs))

	return &run, nil
}

func (s *Session) finish(run *TrainingRun, model *Model, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil:
		s.model = model
		s.metrics.run("trained")
		s.logger.Info("training finished", "run", run.ID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.run("cancelled")
		s.logger.Info("training cancelled", "run", run.ID)
	default:
		s.metrics.run("failed")
		s.logger.Error("training failed", "run", run.ID, "error", err)
	}

	run.model, run.err = model, err
	s.run = nil

	close(run.done)
}

// Train runs a training to completion, releasing any previous Model. Progress
// events are passed to onProgress, if not nil, in epoch order.
func (s *Session) Train(ctx context.Context, obs []Observation, onProgress func(Progress)) (*Model, error) {
	run, err := s.StartTraining(ctx, obs)
	if err != nil {
		return nil, err
	}

	for p := range run.Progress {
		if onProgress != nil {
			onProgress(p)
		}
	}

	return run.Wait()
}

// Model returns the session's trained model or ErrNoModel.
func (s *Session) Model() (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return nil, ErrNoModel
	}

	return s.model, nil
}

// Active returns the running training, or nil.
func (s *Session) Active() *TrainingRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run
}

// Forecast predicts with the session's model at DefaultConfidenceLevel.
func (s *Session) Forecast(recent []Observation, cv ContextVector, hours float64) ([]PredictionPoint, error) {
	return s.ForecastWithConfidence(recent, cv, hours, DefaultConfidenceLevel)
}

// ForecastWithConfidence is Forecast with an explicit confidence level.
func (s *Session) ForecastWithConfidence(recent []Observation, cv ContextVector, hours, level float64) ([]PredictionPoint, error) {
	model, err := s.Model()
	if err != nil {
		return nil, err
	}

	points, err := PredictWithConfidence(model, recent, cv, hours, level)
	if err != nil {
		return nil, err
	}

	s.metrics.forecast(len(points))

	return points, nil
}

// Close cancels any active run, waits for it, and releases the model.
func (s *Session) Close() error {
	if run := s.Active(); run != nil {
		run.Cancel()
		<-run.Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return nil
	}

	err := s.model.Release()
	s.model = nil

	return err
}
