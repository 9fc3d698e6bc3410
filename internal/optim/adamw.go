// Package optim implements the AdamW optimizer with per-group learning
// rates and weight decay, a linear warmup/decay schedule, and global-norm
// gradient clipping.
package optim

import (
	"math"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
)

// Group is one optimizer parameter group.  A parameter must appear in at
// most one group; membership is by pointer identity.
type Group struct {
	Params      []*nn.Parameter
	LR          float64
	WeightDecay float64
}

type moments struct {
	m, v []float32
}

// AdamW implements Adam with decoupled weight decay and bias correction.
//
// Update rule per element:
//
//	m = β1·m + (1-β1)·g
//	v = β2·v + (1-β2)·g²
//	w = w - lr·( m̂ / (√v̂ + ε) + wd·w )
//
// where m̂, v̂ are the bias-corrected moments.  Frozen parameters are skipped
// entirely.  The effective learning rate of a group is its LR times the
// scale installed by the schedule.
type AdamW struct {
	groups []Group

	beta1, beta2 float64
	eps          float64
	lrScale      float64
	step         int

	state map[*nn.Parameter]*moments
}

// NewAdamW creates an AdamW optimizer over the given groups with standard
// defaults: β1=0.9, β2=0.999, ε=1e-8.
func NewAdamW(groups []Group) *AdamW {
	return &AdamW{
		groups:  groups,
		beta1:   0.9,
		beta2:   0.999,
		eps:     1e-8,
		lrScale: 1,
		state:   make(map[*nn.Parameter]*moments),
	}
}

// Groups returns the optimizer parameter groups.
func (a *AdamW) Groups() []Group { return a.groups }

// SetLRScale installs the schedule factor applied to every group LR.
func (a *AdamW) SetLRScale(scale float64) {
	a.lrScale = scale
}

// LR returns the current effective learning rate of the first group.
func (a *AdamW) LR() float64 {
	if len(a.groups) == 0 {
		return 0
	}
	return a.groups[0].LR * a.lrScale
}

// ZeroGrad clears the gradients of every parameter in every group.
func (a *AdamW) ZeroGrad() {
	for _, g := range a.groups {
		for _, p := range g.Params {
			p.ZeroGrad()
		}
	}
}

// Step applies one update to every non-frozen parameter.
func (a *AdamW) Step() {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))

	for _, g := range a.groups {
		lr := g.LR * a.lrScale
		for _, p := range g.Params {
			if p.Frozen {
				continue
			}
			st, ok := a.state[p]
			if !ok {
				st = &moments{
					m: make([]float32, len(p.Data.Data)),
					v: make([]float32, len(p.Data.Data)),
				}
				a.state[p] = st
			}
			for i, grad := range p.Grad.Data {
				gf := float64(grad)
				m := float64(st.m[i])*a.beta1 + (1-a.beta1)*gf
				v := float64(st.v[i])*a.beta2 + (1-a.beta2)*gf*gf
				st.m[i] = float32(m)
				st.v[i] = float32(v)

				mHat := m / c1
				vHat := v / c2
				w := float64(p.Data.Data[i])
				w -= lr * (mHat/(math.Sqrt(vHat)+a.eps) + g.WeightDecay*w)
				p.Data.Data[i] = float32(w)
			}
		}
	}
}
