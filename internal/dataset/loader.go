package dataset

import "math/rand"

// Loader serves fixed-size batches over a sample set.  The visit order is
// reshuffled deterministically per epoch from the base seed, so two runs
// with the same seed see identical batches.
type Loader struct {
	samples   []Sample
	batchSize int
	seed      int64
	order     []int
}

// NewLoader builds a loader.  batchSize is clamped to the sample count.
// Returns ErrEmptyDataset when samples is empty.
func NewLoader(samples []Sample, batchSize int, seed int64) (*Loader, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	if batchSize <= 0 || batchSize > len(samples) {
		batchSize = len(samples)
	}
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	return &Loader{
		samples:   samples,
		batchSize: batchSize,
		seed:      seed,
		order:     order,
	}, nil
}

// Len returns the number of samples.
func (l *Loader) Len() int { return len(l.samples) }

// Batches returns the number of batches per epoch (last batch may be short).
func (l *Loader) Batches() int {
	return (len(l.samples) + l.batchSize - 1) / l.batchSize
}

// Shuffle reorders the samples for the given epoch.
func (l *Loader) Shuffle(epoch int) {
	rng := rand.New(rand.NewSource(l.seed + int64(epoch)))
	rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Batch returns the i-th batch of the current epoch order.  The returned
// slice is freshly allocated; the samples themselves are shared.
func (l *Loader) Batch(i int) []Sample {
	lo := i * l.batchSize
	hi := lo + l.batchSize
	if hi > len(l.samples) {
		hi = len(l.samples)
	}
	if lo >= hi {
		return nil
	}
	out := make([]Sample, 0, hi-lo)
	for _, idx := range l.order[lo:hi] {
		out = append(out, l.samples[idx])
	}
	return out
}
