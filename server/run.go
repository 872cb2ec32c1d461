package server

import (
	"context"
	"errors"
	"sync"

	"endobit.io/burn"
)

// Run states reported by the status endpoint.
const (
	stateRunning   = "running"
	stateTrained   = "trained"
	stateCancelled = "cancelled"
	stateFailed    = "failed"
)

// run records the progress of a training run so any number of event streams
// can replay it.
type run struct {
	id    string
	train *burn.TrainingRun

	mu       sync.Mutex
	events   []burn.Progress
	changed  chan struct{} // closed and replaced on every update
	state    string
	err      error
	finished bool
}

type runStatus struct {
	ID     string         `json:"id"`
	State  string         `json:"state"`
	Epochs int            `json:"epochs"`
	Last   *burn.Progress `json:"last,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func newRun(train *burn.TrainingRun) *run {
	return &run{
		id:      train.ID,
		train:   train,
		changed: make(chan struct{}),
		state:   stateRunning,
	}
}

// watch drains the training progress and records the outcome.
func (r *run) watch() {
	for p := range r.train.Progress {
		r.update(func() { r.events = append(r.events, p) })
	}

	_, err := r.train.Wait()

	r.update(func() {
		r.finished = true
		r.err = err

		switch {
		case err == nil:
			r.state = stateTrained
		case errors.Is(err, context.Canceled):
			r.state = stateCancelled
		default:
			r.state = stateFailed
		}
	})
}

func (r *run) update(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn()
	close(r.changed)
	r.changed = make(chan struct{})
}

// since returns the events after the first n, a channel closed on the next
// update and whether the run has finished.
func (r *run) since(n int) ([]burn.Progress, <-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]burn.Progress(nil), r.events[min(n, len(r.events)):]...), r.changed, r.finished
}

func (r *run) status() runStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := runStatus{
		ID:     r.id,
		State:  r.state,
		Epochs: len(r.events),
	}

	if len(r.events) > 0 {
		last := r.events[len(r.events)-1]
		s.Last = &last
	}

	if r.err != nil {
		s.Error = r.err.Error()
	}

	return s
}

func (r *run) done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.finished
}
