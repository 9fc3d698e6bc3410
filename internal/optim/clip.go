package optim

import (
	"math"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
)

// ClipGradNorm rescales the gradients of the given parameters so their
// global L2 norm does not exceed maxNorm, and returns the pre-clip norm.
// Frozen parameters are excluded.  maxNorm <= 0 disables clipping.
func ClipGradNorm(params []*nn.Parameter, maxNorm float64) float64 {
	var sq float64
	for _, p := range params {
		if p.Frozen {
			continue
		}
		for _, g := range p.Grad.Data {
			sq += float64(g) * float64(g)
		}
	}
	norm := math.Sqrt(sq)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := float32(maxNorm / (norm + 1e-6))
	for _, p := range params {
		if p.Frozen {
			continue
		}
		for i := range p.Grad.Data {
			p.Grad.Data[i] *= scale
		}
	}
	return norm
}
