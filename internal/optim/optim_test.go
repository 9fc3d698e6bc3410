package optim

import (
	"math"
	"testing"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
)

func newParam(t *testing.T, name string, vals []float32) *nn.Parameter {
	t.Helper()
	p := nn.ZeroParameter(name, 1, len(vals))
	copy(p.Data.Row(0), vals)
	return p
}

func TestAdamWStepsAgainstGradient(t *testing.T) {
	t.Parallel()

	p := newParam(t, "w", []float32{1, -1})
	opt := NewAdamW([]Group{{Params: []*nn.Parameter{p}, LR: 0.1}})

	p.Grad.Row(0)[0] = 1
	p.Grad.Row(0)[1] = -1
	opt.Step()

	if p.Data.At(0, 0) >= 1 {
		t.Fatalf("positive gradient did not decrease weight: %v", p.Data.At(0, 0))
	}
	if p.Data.At(0, 1) <= -1 {
		t.Fatalf("negative gradient did not increase weight: %v", p.Data.At(0, 1))
	}
}

func TestAdamWSkipsFrozen(t *testing.T) {
	t.Parallel()

	p := newParam(t, "w", []float32{0.5})
	p.Frozen = true
	opt := NewAdamW([]Group{{Params: []*nn.Parameter{p}, LR: 0.1}})
	p.Grad.Row(0)[0] = 10
	opt.Step()
	if p.Data.At(0, 0) != 0.5 {
		t.Fatalf("frozen parameter moved to %v", p.Data.At(0, 0))
	}
}

func TestAdamWWeightDecayShrinksWeights(t *testing.T) {
	t.Parallel()

	decayed := newParam(t, "w", []float32{1})
	plain := newParam(t, "b", []float32{1})
	opt := NewAdamW([]Group{
		{Params: []*nn.Parameter{decayed}, LR: 0.1, WeightDecay: 0.5},
		{Params: []*nn.Parameter{plain}, LR: 0.1, WeightDecay: 0},
	})
	// zero gradient isolates the decay term
	opt.Step()
	if plain.Data.At(0, 0) != 1 {
		t.Fatalf("zero-decay weight moved without gradient: %v", plain.Data.At(0, 0))
	}
	if decayed.Data.At(0, 0) >= 1 {
		t.Fatalf("decayed weight did not shrink: %v", decayed.Data.At(0, 0))
	}
}

func TestLinearWarmupFactors(t *testing.T) {
	t.Parallel()

	s := NewLinearWarmup(100, 0.1)
	if s.Warmup() != 10 {
		t.Fatalf("warmup = %d, want 10", s.Warmup())
	}
	if s.Factor() != 0 {
		t.Fatalf("initial factor = %v, want 0", s.Factor())
	}

	opt := NewAdamW(nil)
	for i := 0; i < 10; i++ {
		s.Step(opt)
	}
	if math.Abs(s.Factor()-1) > 1e-9 {
		t.Fatalf("factor after warmup = %v, want 1", s.Factor())
	}
	for i := 0; i < 90; i++ {
		s.Step(opt)
	}
	if s.Factor() != 0 {
		t.Fatalf("final factor = %v, want 0", s.Factor())
	}
	// overshoot clamps at zero
	s.Step(opt)
	if s.Factor() != 0 {
		t.Fatalf("overshoot factor = %v, want 0", s.Factor())
	}
}

func TestLinearWarmupDegenerate(t *testing.T) {
	t.Parallel()

	s := NewLinearWarmup(0, 0.5)
	if s.Warmup() != 0 || s.Factor() != 0 {
		t.Fatalf("degenerate schedule: warmup %d factor %v", s.Warmup(), s.Factor())
	}

	// no warmup: constant decay from full rate
	s2 := NewLinearWarmup(10, 0)
	if s2.Factor() != 1 {
		t.Fatalf("zero-warmup initial factor = %v, want 1", s2.Factor())
	}
}

func TestClipGradNorm(t *testing.T) {
	t.Parallel()

	p := newParam(t, "w", []float32{3, 4})
	p.Grad.Row(0)[0] = 3
	p.Grad.Row(0)[1] = 4

	norm := ClipGradNorm([]*nn.Parameter{p}, 1.0)
	if math.Abs(norm-5) > 1e-6 {
		t.Fatalf("pre-clip norm = %v, want 5", norm)
	}
	var sq float64
	for _, g := range p.Grad.Data {
		sq += float64(g) * float64(g)
	}
	if math.Abs(math.Sqrt(sq)-1) > 1e-3 {
		t.Fatalf("post-clip norm = %v, want 1", math.Sqrt(sq))
	}
}

func TestClipGradNormUnderThresholdUntouched(t *testing.T) {
	t.Parallel()

	p := newParam(t, "w", []float32{1})
	p.Grad.Row(0)[0] = 0.5
	ClipGradNorm([]*nn.Parameter{p}, 1.0)
	if p.Grad.At(0, 0) != 0.5 {
		t.Fatalf("gradient under the threshold was rescaled: %v", p.Grad.At(0, 0))
	}
}

func TestClipGradNormExcludesFrozen(t *testing.T) {
	t.Parallel()

	frozen := newParam(t, "f", []float32{1})
	frozen.Frozen = true
	frozen.Grad.Row(0)[0] = 100
	live := newParam(t, "w", []float32{1})
	live.Grad.Row(0)[0] = 0.5

	norm := ClipGradNorm([]*nn.Parameter{frozen, live}, 1.0)
	if math.Abs(norm-0.5) > 1e-6 {
		t.Fatalf("frozen gradient entered the norm: %v", norm)
	}
	if live.Grad.At(0, 0) != 0.5 {
		t.Fatalf("live gradient rescaled by frozen contribution: %v", live.Grad.At(0, 0))
	}
}
