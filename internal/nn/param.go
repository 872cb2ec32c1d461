// Package nn is the small recurrent regression network behind the burn
// model: an LSTM encoder whose final hidden state is concatenated with a
// context vector and passed through a rectified hidden layer, dropout and a
// linear output unit.
package nn

import (
	"math"
	"math/rand/v2"
)

// param is a trainable tensor stored flat, row-major, with its gradient
// accumulator and Adam moments.
type param struct {
	w []float64
	g []float64
	m []float64
	v []float64
}

func newParam(n int) *param {
	return &param{
		w: make([]float64, n),
		g: make([]float64, n),
		m: make([]float64, n),
		v: make([]float64, n),
	}
}

func (p *param) zeroGrad() {
	clear(p.g)
}

// glorot fills p with uniform samples in ±sqrt(6/(fanIn+fanOut)).
func (p *param) glorot(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))

	for i := range p.w {
		p.w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
