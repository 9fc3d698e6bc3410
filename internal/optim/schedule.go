package optim

import "math"

// LinearWarmup ramps the learning rate linearly from zero over the warmup
// steps, then decays it linearly to zero at the final training step.
type LinearWarmup struct {
	total  int
	warmup int
	t      int
}

// NewLinearWarmup builds the schedule for the given total step count.
// The warmup step count is round(total * proportion).  A non-positive total
// yields a degenerate schedule with zero warmup and a constant factor of 0.
func NewLinearWarmup(total int, proportion float64) *LinearWarmup {
	warmup := 0
	if total > 0 && proportion > 0 {
		warmup = int(math.Round(float64(total) * proportion))
	}
	return &LinearWarmup{total: total, warmup: warmup}
}

// Warmup returns the warmup step count.
func (s *LinearWarmup) Warmup() int { return s.warmup }

// Factor returns the learning rate multiplier at the current position.
func (s *LinearWarmup) Factor() float64 {
	if s.total <= 0 {
		return 0
	}
	if s.t < s.warmup {
		return float64(s.t) / float64(max(1, s.warmup))
	}
	f := float64(s.total-s.t) / float64(max(1, s.total-s.warmup))
	if f < 0 {
		return 0
	}
	return f
}

// Step advances the schedule exactly one position and installs the new
// factor on the optimizer.  Called once per training step, after Step.
func (s *LinearWarmup) Step(opt *AdamW) {
	s.t++
	opt.SetLRScale(s.Factor())
}
