package nn

import "github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"

// Linear is a fully connected layer y = W·x + b with W of shape [out x in]
// and b of shape [1 x out].
type Linear struct {
	W *Parameter
	B *Parameter

	In, Out int
}

// NewLinear constructs a linear layer whose parameters are named
// "<prefix>.weight" and "<prefix>.bias".
func NewLinear(prefix string, in, out int, seed int64) *Linear {
	return &Linear{
		W:   NewParameter(prefix+".weight", out, in, seed),
		B:   ZeroParameter(prefix+".bias", 1, out),
		In:  in,
		Out: out,
	}
}

// Forward computes y = W·x + b.  y must have length Out.
func (l *Linear) Forward(x, y []float32) {
	if len(x) != l.In || len(y) != l.Out {
		panic("linear dimension mismatch")
	}
	bias := l.B.Data.Row(0)
	for o := 0; o < l.Out; o++ {
		y[o] = tensor.Dot(l.W.Data.Row(o), x) + bias[o]
	}
}

// Backward accumulates parameter gradients for the forward input x and the
// upstream gradient dy, and adds the input gradient into dx when dx is
// non-nil.  Frozen parameters accumulate no gradient but still propagate.
func (l *Linear) Backward(x, dy, dx []float32) {
	if len(x) != l.In || len(dy) != l.Out {
		panic("linear dimension mismatch")
	}
	if !l.W.Frozen {
		for o := 0; o < l.Out; o++ {
			tensor.Axpy(dy[o], l.W.Grad.Row(o), x)
		}
	}
	if !l.B.Frozen {
		tensor.Add(l.B.Grad.Row(0), dy)
	}
	if dx != nil {
		for o := 0; o < l.Out; o++ {
			tensor.Axpy(dy[o], dx, l.W.Data.Row(o))
		}
	}
}

// Params returns the layer parameters in declaration order.
func (l *Linear) Params() []*Parameter {
	return []*Parameter{l.W, l.B}
}
