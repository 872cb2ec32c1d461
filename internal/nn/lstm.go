package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// lstm is a single layer LSTM that returns only its final hidden state. Gate
// rows are laid out input, forget, cell, output.
type lstm struct {
	in    int
	units int
	wx    *param // 4*units x in
	wh    *param // 4*units x units
	b     *param // 4*units
}

func newLSTM(rng *rand.Rand, in, units int) *lstm {
	l := lstm{
		in:    in,
		units: units,
		wx:    newParam(4 * units * in),
		wh:    newParam(4 * units * units),
		b:     newParam(4 * units),
	}

	l.wx.glorot(rng, in, 4*units)
	l.wh.glorot(rng, units, 4*units)

	for j := units; j < 2*units; j++ {
		l.b.w[j] = 1 // forget gate bias
	}

	return &l
}

func (l *lstm) params() []*param {
	return []*param{l.wx, l.wh, l.b}
}

// trace records the activations of one forward pass. hs and cs have one
// more entry than the sequence; hs[t] and cs[t] are the state entering step t.
type trace struct {
	xs         [][]float64
	hs, cs     [][]float64
	i, f, g, o [][]float64
	tc         [][]float64
}

func (tr *trace) last() []float64 {
	return tr.hs[len(tr.hs)-1]
}

func (l *lstm) forward(xs [][]float64) *trace {
	n, h := len(xs), l.units

	tr := trace{
		xs: xs,
		hs: make([][]float64, n+1),
		cs: make([][]float64, n+1),
		i:  make([][]float64, n),
		f:  make([][]float64, n),
		g:  make([][]float64, n),
		o:  make([][]float64, n),
		tc: make([][]float64, n),
	}

	tr.hs[0] = make([]float64, h)
	tr.cs[0] = make([]float64, h)

	z := make([]float64, 4*h)

	for t, x := range xs {
		hPrev, cPrev := tr.hs[t], tr.cs[t]

		for r := range z {
			z[r] = l.b.w[r] +
				floats.Dot(l.wx.w[r*l.in:(r+1)*l.in], x) +
				floats.Dot(l.wh.w[r*h:(r+1)*h], hPrev)
		}

		ig := make([]float64, h)
		fg := make([]float64, h)
		gg := make([]float64, h)
		og := make([]float64, h)
		c := make([]float64, h)
		tc := make([]float64, h)
		hs := make([]float64, h)

		for j := range h {
			ig[j] = sigmoid(z[j])
			fg[j] = sigmoid(z[h+j])
			gg[j] = math.Tanh(z[2*h+j])
			og[j] = sigmoid(z[3*h+j])
			c[j] = fg[j]*cPrev[j] + ig[j]*gg[j]
			tc[j] = math.Tanh(c[j])
			hs[j] = og[j] * tc[j]
		}

		tr.i[t], tr.f[t], tr.g[t], tr.o[t] = ig, fg, gg, og
		tr.tc[t] = tc
		tr.cs[t+1] = c
		tr.hs[t+1] = hs
	}

	return &tr
}

// backward propagates dhLast, the gradient of the loss with respect to the
// final hidden state, back through time and accumulates parameter gradients.
func (l *lstm) backward(tr *trace, dhLast []float64) {
	h := l.units

	dh := make([]float64, h)
	copy(dh, dhLast)

	dc := make([]float64, h)
	dz := make([]float64, 4*h)
	dhPrev := make([]float64, h)

	for t := len(tr.xs) - 1; t >= 0; t-- {
		ig, fg, gg, og, tc := tr.i[t], tr.f[t], tr.g[t], tr.o[t], tr.tc[t]
		cPrev := tr.cs[t]

		for j := range h {
			do := dh[j] * tc[j]
			dc[j] += dh[j] * og[j] * (1 - tc[j]*tc[j])

			dz[j] = dc[j] * gg[j] * ig[j] * (1 - ig[j])
			dz[h+j] = dc[j] * cPrev[j] * fg[j] * (1 - fg[j])
			dz[2*h+j] = dc[j] * ig[j] * (1 - gg[j]*gg[j])
			dz[3*h+j] = do * og[j] * (1 - og[j])

			dc[j] *= fg[j]
		}

		x, hPrev := tr.xs[t], tr.hs[t]

		clear(dhPrev)

		for r, d := range dz {
			if d == 0 {
				continue
			}

			floats.AddScaled(l.wx.g[r*l.in:(r+1)*l.in], d, x)
			floats.AddScaled(l.wh.g[r*h:(r+1)*h], d, hPrev)
			floats.AddScaled(dhPrev, d, l.wh.w[r*h:(r+1)*h])
			l.b.g[r] += d
		}

		dh, dhPrev = dhPrev, dh
	}
}
