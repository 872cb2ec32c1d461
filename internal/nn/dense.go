package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

type dense struct {
	in  int
	out int
	w   *param // out x in
	b   *param // out
}

func newDense(rng *rand.Rand, in, out int) *dense {
	d := dense{
		in:  in,
		out: out,
		w:   newParam(out * in),
		b:   newParam(out),
	}

	d.w.glorot(rng, in, out)

	return &d
}

func (d *dense) params() []*param {
	return []*param{d.w, d.b}
}

func (d *dense) forward(x []float64) []float64 {
	y := make([]float64, d.out)

	for r := range y {
		y[r] = d.b.w[r] + floats.Dot(d.w.w[r*d.in:(r+1)*d.in], x)
	}

	return y
}

// backward accumulates gradients for dy at input x and returns dx.
func (d *dense) backward(x, dy []float64) []float64 {
	dx := make([]float64, d.in)

	for r, g := range dy {
		if g == 0 {
			continue
		}

		floats.AddScaled(d.w.g[r*d.in:(r+1)*d.in], g, x)
		floats.AddScaled(dx, g, d.w.w[r*d.in:(r+1)*d.in])
		d.b.g[r] += g
	}

	return dx
}
