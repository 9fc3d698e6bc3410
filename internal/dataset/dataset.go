// Package dataset holds the natural-language-query samples consumed by the
// trainer: a tokenised text query paired with per-frame video features and
// the annotated start/end of the matching moment.
package dataset

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// ErrEmptyDataset is returned when a loader is built over zero samples.
var ErrEmptyDataset = errors.New("dataset: no samples")

// Sample is one query/video pair.  Vfeats holds one feature vector per video
// frame; StartIdx/EndIdx index into Vfeats; Highlights marks the frames
// inside the annotated moment with 1.
type Sample struct {
	QueryID    string      `json:"query_id"`
	VideoID    string      `json:"video_id"`
	Tokens     []int       `json:"tokens"`
	Vfeats     [][]float32 `json:"vfeats"`
	StartIdx   int         `json:"start_idx"`
	EndIdx     int         `json:"end_idx"`
	Highlights []float32   `json:"highlights"`
	Duration   float64     `json:"duration"`
	StartTime  float64     `json:"start_time"`
	EndTime    float64     `json:"end_time"`
}

// Frames returns the number of video frames in the sample.
func (s *Sample) Frames() int { return len(s.Vfeats) }

// Validate checks the internal consistency of a sample.
func (s *Sample) Validate() error {
	t := s.Frames()
	if t == 0 {
		return fmt.Errorf("sample %s: no video features", s.QueryID)
	}
	if len(s.Tokens) == 0 {
		return fmt.Errorf("sample %s: empty query", s.QueryID)
	}
	if s.StartIdx < 0 || s.StartIdx >= t || s.EndIdx < s.StartIdx || s.EndIdx >= t {
		return fmt.Errorf("sample %s: span [%d,%d] out of range for %d frames",
			s.QueryID, s.StartIdx, s.EndIdx, t)
	}
	if len(s.Highlights) != t {
		return fmt.Errorf("sample %s: %d highlight labels for %d frames",
			s.QueryID, len(s.Highlights), t)
	}
	return nil
}

// Load reads a JSON dataset file and validates every sample.
func Load(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	for i := range samples {
		if err := samples[i].Validate(); err != nil {
			return nil, fmt.Errorf("dataset: %s: %w", path, err)
		}
	}
	return samples, nil
}

// Save writes samples to a JSON dataset file.
func Save(path string, samples []Sample) error {
	data, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("dataset: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	return nil
}
