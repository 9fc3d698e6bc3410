package nn

import "github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"

// Parameter is a named trainable tensor with its gradient accumulator.
// Frozen parameters keep receiving gradient propagation through them but are
// skipped by the optimizer, so their values never change during a run.
//
// Identity matters: parameter-group membership and optimizer state are keyed
// by the *Parameter pointer, never by value.
type Parameter struct {
	Name   string
	Data   tensor.Mat
	Grad   tensor.Mat
	Frozen bool
}

// NewParameter allocates a named r x c parameter with a zeroed gradient,
// initialised from the given seed.
func NewParameter(name string, r, c int, seed int64) *Parameter {
	p := &Parameter{
		Name: name,
		Data: tensor.NewMat(r, c),
		Grad: tensor.NewMat(r, c),
	}
	tensor.FillRand(&p.Data, seed)
	return p
}

// ZeroParameter allocates a named r x c parameter initialised to zero.
// Used for biases and layer-norm shifts.
func ZeroParameter(name string, r, c int) *Parameter {
	return &Parameter{
		Name: name,
		Data: tensor.NewMat(r, c),
		Grad: tensor.NewMat(r, c),
	}
}

// ZeroGrad resets the gradient accumulator.
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}
