package nn

import (
	"math"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"
)

// SpanCrossEntropy computes the cross-entropy of a single target index under
// the softmax of logits, and returns the gradient with respect to the logits
// (softmax minus one-hot).  The gradient slice is freshly allocated.
func SpanCrossEntropy(logits []float32, target int) (float32, []float32) {
	if target < 0 || target >= len(logits) {
		panic("span target out of range")
	}
	probs := make([]float32, len(logits))
	copy(probs, logits)
	tensor.Softmax(probs)

	p := float64(probs[target])
	if p < 1e-12 {
		p = 1e-12
	}
	loss := float32(-math.Log(p))

	grad := probs
	grad[target] -= 1
	return loss, grad
}

// HighlightBCE computes the mean binary cross-entropy between sigmoid scores
// derived from the given logits and {0,1} labels, and returns the gradient
// with respect to the logits.  Labels and logits must have equal length.
func HighlightBCE(logits, labels []float32) (float32, []float32) {
	if len(logits) != len(labels) {
		panic("highlight label length mismatch")
	}
	n := len(logits)
	if n == 0 {
		return 0, nil
	}
	grad := make([]float32, n)
	var loss float64
	inv := 1.0 / float64(n)
	for i := range logits {
		s := float64(tensor.Sigmoid(logits[i]))
		y := float64(labels[i])
		// clamp to keep log finite on saturated scores
		if s < 1e-7 {
			s = 1e-7
		} else if s > 1-1e-7 {
			s = 1 - 1e-7
		}
		loss -= (y*math.Log(s) + (1-y)*math.Log(1-s)) * inv
		grad[i] = float32((s - y) * inv)
	}
	return float32(loss), grad
}
