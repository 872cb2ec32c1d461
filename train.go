package burn

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"endobit.io/app/log"

	"endobit.io/burn/internal/nn"
)

// Progress is reported once per completed epoch, in epoch order.
type Progress struct {
	Epoch          int     `json:"epoch"`
	TotalEpochs    int     `json:"total_epochs"`
	TrainingLoss   float64 `json:"loss"`
	ValidationLoss float64 `json:"val_loss"`
}

type trainer struct {
	logger  *slog.Logger
	metrics *Metrics
	epochs  int
	seed    uint64
	seeded  bool
}

// TrainOption configures Train and NewSession.
type TrainOption func(*trainer)

// WithLogger is an option setting function for Train. It sets the logger used
// for per epoch debug output.
func WithLogger(logger *slog.Logger) TrainOption {
	return func(t *trainer) {
		t.logger = logger
	}
}

// WithMetrics is an option setting function for Train. Training counters and
// gauges are recorded on m.
func WithMetrics(m *Metrics) TrainOption {
	return func(t *trainer) {
		t.metrics = m
	}
}

// WithSeed is an option setting function for Train. It fixes the weight
// initialization, shuffling and dropout so runs are reproducible.
func WithSeed(seed uint64) TrainOption {
	return func(t *trainer) {
		t.seed = seed
		t.seeded = true
	}
}

// WithEpochs is an option setting function for Train. It overrides the
// number of epochs, which is otherwise Epochs.
func WithEpochs(n int) TrainOption {
	return func(t *trainer) {
		if n > 0 {
			t.epochs = n
		}
	}
}

func newTrainer(opts []TrainOption) *trainer {
	t := trainer{
		logger: slog.New(slog.DiscardHandler),
		epochs: Epochs,
	}

	for _, o := range opts {
		o(&t)
	}

	if !t.seeded {
		t.seed = rand.Uint64()
	}

	return &t
}

// Train fits a new Model to the selected historical window obs.
//
// Progress is sent on progress after every epoch without blocking; an event
// that does not fit is dropped, so a channel with capacity for every epoch
// sees them all. progress may be nil. Train does not close the channel.
//
// Cancelling ctx abandons the run at the next epoch boundary and returns the
// context error. A non-finite loss aborts with *TrainingFailure. In both cases
// the partial network is discarded and no Model is returned.
//
// Historical context is unavailable, so every example is paired with a zero
// ContextVector; real context only enters at forecast time.
func Train(ctx context.Context, obs []Observation, progress chan<- Progress, opts ...TrainOption) (*Model, error) {
	t := newTrainer(opts)

	examples, err := BuildDataset(obs)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(t.seed, t.seed^0x9e3779b97f4a7c15))

	net, err := nn.New(networkConfig(), rng)
	if err != nil {
		return nil, err
	}

	n := len(examples)
	seqs := make([][][]float64, n)
	ctxs := make([][]float64, n)
	targets := make([]float64, n)
	zero := make([]float64, ContextWidth)

	for i, ex := range examples {
		seqs[i] = make([][]float64, len(ex.Sequence))
		for j, f := range ex.Sequence {
			seqs[i][j] = f.slice()
		}

		ctxs[i] = zero
		targets[i] = ex.Target
	}

	// The validation examples are the tail of the series and never shuffled
	// into training.
	nTrain := int(float64(n) * (1 - ValidationSplit))
	if nTrain == 0 {
		nTrain = n
	}

	train := make([]int, nTrain)
	for i := range train {
		train[i] = i
	}

	val := make([]int, 0, n-nTrain)
	for i := nTrain; i < n; i++ {
		val = append(val, i)
	}

	if len(val) == 0 {
		val = train
	}

	start := time.Now()

	t.logger.Info("training", "examples", n, "validation", n-nTrain, "epochs", t.epochs)

	var last Progress

	for epoch := 1; epoch <= t.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			t.logger.Info("training cancelled", "epoch", epoch)

			return nil, err
		}

		rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })

		var sum float64

		for b := 0; b < len(train); b += BatchSize {
			batch := train[b:min(b+BatchSize, len(train))]
			loss := net.TrainBatch(gather(seqs, batch), gather(ctxs, batch), gather(targets, batch), rng)
			sum += loss * float64(len(batch))
		}

		last = Progress{
			Epoch:          epoch,
			TotalEpochs:    t.epochs,
			TrainingLoss:   sum / float64(len(train)),
			ValidationLoss: net.Loss(gather(seqs, val), gather(ctxs, val), gather(targets, val)),
		}

		if !finite(last.TrainingLoss) || !finite(last.ValidationLoss) {
			t.metrics.trainingFailed()
			t.logger.Error("training diverged", "epoch", epoch, "loss", last.TrainingLoss)

			return nil, &TrainingFailure{Epoch: epoch, Loss: last.TrainingLoss}
		}

		t.metrics.epoch(last)
		t.logger.Debug("epoch",
			slog.Int("epoch", epoch),
			log.Format("%.6f", "loss", last.TrainingLoss),
			log.Format("%.6f", "val_loss", last.ValidationLoss))

		if progress != nil {
			select {
			case progress <- last:
			default:
				t.logger.Warn("progress dropped", "epoch", epoch)
			}
		}
	}

	elapsed := time.Since(start)
	t.metrics.trained(elapsed)
	t.logger.Info("trained",
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
		log.Format("%.6f", "loss", last.TrainingLoss),
		log.Format("%.6f", "val_loss", last.ValidationLoss))

	return &Model{
		net:       net,
		TrainedAt: time.Now(),
		Examples:  n,
		Final:     last,
	}, nil
}

func gather[T any](all []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = all[j]
	}

	return out
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
