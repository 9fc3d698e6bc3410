package nn

import "math"

const lnEpsilon = 1e-5

// LayerNorm normalises a vector to zero mean and unit variance, then applies
// a learned elementwise scale and shift.  The parameters are named
// "<prefix>.layer_norm.weight" and "<prefix>.layer_norm.bias" so they match
// the no-decay grouping pattern used for fine-tuning.
type LayerNorm struct {
	Gamma *Parameter
	Beta  *Parameter

	Dim int
}

// NewLayerNorm constructs a layer norm over vectors of the given dimension.
// Gamma starts at one, beta at zero.
func NewLayerNorm(prefix string, dim int) *LayerNorm {
	ln := &LayerNorm{
		Gamma: ZeroParameter(prefix+".layer_norm.weight", 1, dim),
		Beta:  ZeroParameter(prefix+".layer_norm.bias", 1, dim),
		Dim:   dim,
	}
	g := ln.Gamma.Data.Row(0)
	for i := range g {
		g[i] = 1
	}
	return ln
}

// Forward computes y = gamma * xhat + beta where xhat is the normalised x.
func (ln *LayerNorm) Forward(x, y []float32) {
	if len(x) != ln.Dim || len(y) != ln.Dim {
		panic("layernorm dimension mismatch")
	}
	mean, invStd := ln.moments(x)
	gamma := ln.Gamma.Data.Row(0)
	beta := ln.Beta.Data.Row(0)
	for i := range x {
		y[i] = gamma[i]*(x[i]-mean)*invStd + beta[i]
	}
}

// Backward accumulates gamma/beta gradients and adds the input gradient
// into dx when dx is non-nil.  Moments are recomputed from x.
func (ln *LayerNorm) Backward(x, dy, dx []float32) {
	if len(x) != ln.Dim || len(dy) != ln.Dim {
		panic("layernorm dimension mismatch")
	}
	mean, invStd := ln.moments(x)
	gamma := ln.Gamma.Data.Row(0)
	n := float32(ln.Dim)

	var sumDxhat, sumDxhatXhat float32
	for i := range x {
		xhat := (x[i] - mean) * invStd
		dxhat := dy[i] * gamma[i]
		sumDxhat += dxhat
		sumDxhatXhat += dxhat * xhat
	}

	gGrad := ln.Gamma.Grad.Row(0)
	bGrad := ln.Beta.Grad.Row(0)
	for i := range x {
		xhat := (x[i] - mean) * invStd
		if !ln.Gamma.Frozen {
			gGrad[i] += dy[i] * xhat
		}
		if !ln.Beta.Frozen {
			bGrad[i] += dy[i]
		}
		if dx != nil {
			dxhat := dy[i] * gamma[i]
			dx[i] += (invStd / n) * (n*dxhat - sumDxhat - xhat*sumDxhatXhat)
		}
	}
}

// Params returns the layer parameters in declaration order.
func (ln *LayerNorm) Params() []*Parameter {
	return []*Parameter{ln.Gamma, ln.Beta}
}

func (ln *LayerNorm) moments(x []float32) (mean, invStd float32) {
	var sum float32
	for _, v := range x {
		sum += v
	}
	mean = sum / float32(len(x))
	var varSum float32
	for _, v := range x {
		d := v - mean
		varSum += d * d
	}
	variance := varSum / float32(len(x))
	invStd = float32(1.0 / math.Sqrt(float64(variance)+lnEpsilon))
	return mean, invStd
}
