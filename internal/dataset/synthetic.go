package dataset

import (
	"fmt"
	"math/rand"
)

// SyntheticConfig controls the generated dataset shape.
type SyntheticConfig struct {
	Samples   int
	VocabSize int
	QueryLen  int
	Frames    int
	VideoDim  int
	Seed      int64
}

// Synthetic generates a deterministic dataset for smoke runs and tests.
// The moment span is planted by boosting the features inside the span with
// a direction derived from the query tokens, so a trained model has signal
// to find.
func Synthetic(cfg SyntheticConfig) []Sample {
	rng := rand.New(rand.NewSource(cfg.Seed))
	samples := make([]Sample, 0, cfg.Samples)
	for n := 0; n < cfg.Samples; n++ {
		frames := cfg.Frames
		tokens := make([]int, cfg.QueryLen)
		for i := range tokens {
			tokens[i] = rng.Intn(cfg.VocabSize)
		}

		start := rng.Intn(frames)
		end := start + rng.Intn(frames-start)

		vfeats := make([][]float32, frames)
		highlights := make([]float32, frames)
		for t := 0; t < frames; t++ {
			row := make([]float32, cfg.VideoDim)
			for d := range row {
				row[d] = (rng.Float32() - 0.5) * 0.2
			}
			if t >= start && t <= end {
				highlights[t] = 1
				// plant a token-dependent bump inside the span
				for _, tok := range tokens {
					row[tok%cfg.VideoDim] += 0.5
				}
			}
			vfeats[t] = row
		}

		duration := float64(frames)
		samples = append(samples, Sample{
			QueryID:    fmt.Sprintf("q%04d", n),
			VideoID:    fmt.Sprintf("v%04d", n),
			Tokens:     tokens,
			Vfeats:     vfeats,
			StartIdx:   start,
			EndIdx:     end,
			Highlights: highlights,
			Duration:   duration,
			StartTime:  float64(start),
			EndTime:    float64(end + 1),
		})
	}
	return samples
}
