package nn

import "math"

type adam struct {
	rate    float64
	beta1   float64
	beta2   float64
	epsilon float64
	step    int
}

func newAdam(rate float64) *adam {
	return &adam{
		rate:    rate,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-7,
	}
}

func (a *adam) update(params []*param) {
	a.step++

	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))

	for _, p := range params {
		for i, g := range p.g {
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g

			mHat := p.m[i] / c1
			vHat := p.v[i] / c2

			p.w[i] -= a.rate * mHat / (math.Sqrt(vHat) + a.epsilon)
		}
	}
}
