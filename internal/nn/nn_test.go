package nn

import (
	"math"
	"testing"
)

// numericGrad estimates d(loss)/d(w) by central differences, where loss is
// recomputed through fn after perturbing w.
func numericGrad(w *float32, fn func() float32) float64 {
	const h = 1e-2
	orig := *w
	*w = orig + h
	up := float64(fn())
	*w = orig - h
	down := float64(fn())
	*w = orig
	return (up - down) / (2 * h)
}

func sumSquares(y []float32) float32 {
	var s float32
	for _, v := range y {
		s += v * v / 2
	}
	return s
}

func TestLinearBackwardMatchesNumericGradient(t *testing.T) {
	t.Parallel()

	l := NewLinear("fc", 3, 2, 7)
	x := []float32{0.3, -0.8, 0.5}
	y := make([]float32, 2)

	loss := func() float32 {
		l.Forward(x, y)
		return sumSquares(y)
	}
	loss()
	dy := make([]float32, 2)
	copy(dy, y) // d(sumSquares)/dy = y
	dx := make([]float32, 3)
	l.Backward(x, dy, dx)

	for o := 0; o < l.Out; o++ {
		for i := 0; i < l.In; i++ {
			got := float64(l.W.Grad.At(o, i))
			want := numericGrad(&l.W.Data.Row(o)[i], loss)
			if math.Abs(got-want) > 1e-2*(1+math.Abs(want)) {
				t.Fatalf("dW[%d][%d] = %v, numeric %v", o, i, got, want)
			}
		}
		got := float64(l.B.Grad.At(0, o))
		want := numericGrad(&l.B.Data.Row(0)[o], loss)
		if math.Abs(got-want) > 1e-2*(1+math.Abs(want)) {
			t.Fatalf("db[%d] = %v, numeric %v", o, got, want)
		}
	}
	for i := range x {
		got := float64(dx[i])
		want := numericGrad(&x[i], loss)
		if math.Abs(got-want) > 1e-2*(1+math.Abs(want)) {
			t.Fatalf("dx[%d] = %v, numeric %v", i, got, want)
		}
	}
}

func TestLinearFrozenSkipsParamGrads(t *testing.T) {
	t.Parallel()

	l := NewLinear("fc", 2, 2, 3)
	l.W.Frozen = true
	l.B.Frozen = true
	x := []float32{1, 1}
	dx := make([]float32, 2)
	l.Backward(x, []float32{1, 1}, dx)

	for _, g := range l.W.Grad.Data {
		if g != 0 {
			t.Fatalf("frozen weight accumulated gradient %v", g)
		}
	}
	for _, g := range l.B.Grad.Data {
		if g != 0 {
			t.Fatalf("frozen bias accumulated gradient %v", g)
		}
	}
	// propagation continues through frozen layers
	allZero := true
	for _, g := range dx {
		if g != 0 {
			allZero = false
		}
	}
	if allZero {
		t.Fatalf("frozen layer blocked input gradient")
	}
}

func TestLayerNormBackwardMatchesNumericGradient(t *testing.T) {
	t.Parallel()

	ln := NewLayerNorm("enc", 4)
	// non-trivial gamma/beta
	g := ln.Gamma.Data.Row(0)
	b := ln.Beta.Data.Row(0)
	for i := range g {
		g[i] = 1 + 0.1*float32(i)
		b[i] = 0.05 * float32(i)
	}
	x := []float32{0.4, -1.2, 0.9, 0.1}
	y := make([]float32, 4)

	loss := func() float32 {
		ln.Forward(x, y)
		return sumSquares(y)
	}
	loss()
	dy := make([]float32, 4)
	copy(dy, y)
	dx := make([]float32, 4)
	ln.Backward(x, dy, dx)

	for i := range g {
		got := float64(ln.Gamma.Grad.At(0, i))
		want := numericGrad(&g[i], loss)
		if math.Abs(got-want) > 2e-2*(1+math.Abs(want)) {
			t.Fatalf("dgamma[%d] = %v, numeric %v", i, got, want)
		}
		gotB := float64(ln.Beta.Grad.At(0, i))
		wantB := numericGrad(&b[i], loss)
		if math.Abs(gotB-wantB) > 2e-2*(1+math.Abs(wantB)) {
			t.Fatalf("dbeta[%d] = %v, numeric %v", i, gotB, wantB)
		}
	}
	for i := range x {
		got := float64(dx[i])
		want := numericGrad(&x[i], loss)
		if math.Abs(got-want) > 2e-2*(1+math.Abs(want)) {
			t.Fatalf("dx[%d] = %v, numeric %v", i, got, want)
		}
	}
}

func TestSpanCrossEntropyGradient(t *testing.T) {
	t.Parallel()

	logits := []float32{0.2, 1.5, -0.3}
	loss, grad := SpanCrossEntropy(logits, 1)
	if loss <= 0 {
		t.Fatalf("loss = %v, want positive", loss)
	}
	var sum float32
	for i, g := range grad {
		sum += g
		if i == 1 && g >= 0 {
			t.Fatalf("target gradient %v, want negative", g)
		}
		if i != 1 && g <= 0 {
			t.Fatalf("non-target gradient %v, want positive", g)
		}
	}
	if math.Abs(float64(sum)) > 1e-5 {
		t.Fatalf("gradient sum = %v, want 0", sum)
	}
}

func TestHighlightBCE(t *testing.T) {
	t.Parallel()

	logits := []float32{3, -3}
	labels := []float32{1, 0}
	loss, grad := HighlightBCE(logits, labels)
	if loss < 0 || loss > 0.2 {
		t.Fatalf("well-separated scores gave loss %v", loss)
	}
	if grad[0] >= 0 || grad[1] <= 0 {
		t.Fatalf("gradient signs wrong: %v", grad)
	}

	wrong, _ := HighlightBCE([]float32{-3, 3}, labels)
	if wrong <= loss {
		t.Fatalf("wrong predictions scored %v, not worse than %v", wrong, loss)
	}
}
