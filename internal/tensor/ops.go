package tensor

import "math"

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Axpy computes dst[i] += a * src[i].
func Axpy(a float32, dst, src []float32) {
	for i := range dst {
		dst[i] += a * src[i]
	}
}

// Scale multiplies every element of x by a.
func Scale(a float32, x []float32) {
	for i := range x {
		x[i] *= a
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Zero resets x to all zeros.
func Zero(x []float32) {
	for i := range x {
		x[i] = 0
	}
}

// Softmax applies the softmax function to x in place.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// MaskedSoftmax applies softmax over the positions where mask[i] != 0.
// Masked-out positions are set to zero probability.
func MaskedSoftmax(x, mask []float32) {
	if len(x) == 0 {
		return
	}
	maxv := float32(math.Inf(-1))
	for i := range x {
		if mask[i] != 0 && x[i] > maxv {
			maxv = x[i]
		}
	}
	if math.IsInf(float64(maxv), -1) {
		Zero(x)
		return
	}
	var sum float64
	for i := range x {
		if mask[i] == 0 {
			x[i] = 0
			continue
		}
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// ReLU applies the rectified linear unit to x in place.
func ReLU(x []float32) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}
