package nn

import (
	"errors"
	"math/rand/v2"
)

// Config fixes the network shape and training hyperparameters.
type Config struct {
	Features     int     // values per timestep
	Context      int     // context vector width
	Units        int     // LSTM width
	Hidden       int     // hidden projection width
	Dropout      float64 // training only
	LearningRate float64
}

// Network maps a feature sequence plus a context vector to one scalar.
// Predict and Loss only read the weights and may run concurrently with each
// other, but not with TrainBatch.
type Network struct {
	cfg    Config
	lstm   *lstm
	hidden *dense
	out    *dense
	opt    *adam
}

// New returns a Network with Glorot initialized weights drawn from rng.
func New(cfg Config, rng *rand.Rand) (*Network, error) {
	if cfg.Features <= 0 || cfg.Units <= 0 || cfg.Hidden <= 0 || cfg.Context < 0 {
		return nil, errors.New("invalid network shape")
	}

	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, errors.New("dropout must be in [0,1)")
	}

	return &Network{
		cfg:    cfg,
		lstm:   newLSTM(rng, cfg.Features, cfg.Units),
		hidden: newDense(rng, cfg.Units+cfg.Context, cfg.Hidden),
		out:    newDense(rng, cfg.Hidden, 1),
		opt:    newAdam(cfg.LearningRate),
	}, nil
}

// pass holds what backward needs from a forward pass.
type pass struct {
	tr   *trace
	a    []float64 // encoder output and context
	u    []float64 // hidden pre-activation
	mask []float64 // dropout scale per hidden unit
	d    []float64 // hidden output after dropout
	y    float64
}

func (n *Network) forward(seq [][]float64, ctx []float64, rng *rand.Rand) *pass {
	p := pass{tr: n.lstm.forward(seq)}

	p.a = make([]float64, 0, n.cfg.Units+n.cfg.Context)
	p.a = append(p.a, p.tr.last()...)
	p.a = append(p.a, ctx...)

	p.u = n.hidden.forward(p.a)
	p.mask = make([]float64, len(p.u))
	p.d = make([]float64, len(p.u))

	keep := 1 - n.cfg.Dropout

	for j, u := range p.u {
		p.mask[j] = 1
		if rng != nil && n.cfg.Dropout > 0 {
			if rng.Float64() < keep {
				p.mask[j] = 1 / keep
			} else {
				p.mask[j] = 0
			}
		}

		if u > 0 {
			p.d[j] = u * p.mask[j]
		}
	}

	p.y = n.out.forward(p.d)[0]

	return &p
}

func (n *Network) backward(p *pass, dy float64) {
	dd := n.out.backward(p.d, []float64{dy})

	du := make([]float64, len(dd))
	for j := range dd {
		if p.u[j] > 0 {
			du[j] = dd[j] * p.mask[j]
		}
	}

	da := n.hidden.backward(p.a, du)
	n.lstm.backward(p.tr, da[:n.cfg.Units])
}

func (n *Network) params() []*param {
	var ps []*param

	ps = append(ps, n.lstm.params()...)
	ps = append(ps, n.hidden.params()...)
	ps = append(ps, n.out.params()...)

	return ps
}

// Predict runs the network in inference mode.
func (n *Network) Predict(seq [][]float64, ctx []float64) float64 {
	return n.forward(seq, ctx, nil).y
}

// Loss returns the mean squared error over the examples in inference mode.
func (n *Network) Loss(seqs [][][]float64, ctxs [][]float64, targets []float64) float64 {
	if len(seqs) == 0 {
		return 0
	}

	var sum float64

	for i := range seqs {
		e := n.Predict(seqs[i], ctxs[i]) - targets[i]
		sum += e * e
	}

	return sum / float64(len(seqs))
}

// TrainBatch takes one optimizer step on the mean squared error of the batch
// with dropout drawn from rng, and returns the batch loss before the step.
func (n *Network) TrainBatch(seqs [][][]float64, ctxs [][]float64, targets []float64, rng *rand.Rand) float64 {
	if len(seqs) == 0 {
		return 0
	}

	ps := n.params()
	for _, p := range ps {
		p.zeroGrad()
	}

	scale := 1 / float64(len(seqs))

	var sum float64

	for i := range seqs {
		p := n.forward(seqs[i], ctxs[i], rng)
		e := p.y - targets[i]
		sum += e * e

		n.backward(p, 2*e*scale)
	}

	n.opt.update(ps)

	return sum * scale
}
