package burn

import (
	"sync"
	"time"

	"endobit.io/burn/internal/nn"
)

// Model is a handle on a trained network. It has a single owner, the caller
// that received it from Train or the Session that trained it. Forecasts hold
// a read lock for their whole horizon and Release waits for them to finish,
// so the network is never torn down under an in-flight forecast.
type Model struct {
	mu       sync.RWMutex
	net      *nn.Network
	released bool

	// TrainedAt is when training finished.
	TrainedAt time.Time
	// Examples is the number of training examples the model saw.
	Examples int
	// Final is the progress reported for the last epoch.
	Final Progress
}

// acquire returns the network under a read lock. The caller must invoke
// done exactly once.
func (m *Model) acquire() (net *nn.Network, done func(), err error) {
	m.mu.RLock()

	if m.released {
		m.mu.RUnlock()

		return nil, nil, ErrModelReleased
	}

	return m.net, m.mu.RUnlock, nil
}

// Release frees the trained parameters. It blocks until in-flight forecasts
// complete and returns ErrModelReleased if the model was already released.
func (m *Model) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return ErrModelReleased
	}

	m.released = true
	m.net = nil

	return nil
}

// Released reports whether Release has been called.
func (m *Model) Released() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.released
}

func networkConfig() nn.Config {
	return nn.Config{
		Features:     FeatureWidth,
		Context:      ContextWidth,
		Units:        EncoderWidth,
		Hidden:       HiddenWidth,
		Dropout:      DropoutRate,
		LearningRate: LearningRate,
	}
}
