// Package telemetry emits periodic scalar metrics keyed by name.
package telemetry

import (
	"fmt"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Sink receives scalar metrics.  Implementations must tolerate serial calls
// from a single goroutine; Close flushes and releases the sink.
type Sink interface {
	Scalar(name string, value float64, step int)
	Close() error
}

// Nop discards every metric.
type Nop struct{}

func (Nop) Scalar(string, float64, int) {}
func (Nop) Close() error                { return nil }

type record struct {
	RunID string  `json:"run_id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Step  int     `json:"step"`
	TS    int64   `json:"ts"`
}

// JSONL appends one JSON record per metric to a file.
type JSONL struct {
	mu    sync.Mutex
	f     *os.File
	runID string
	now   func() time.Time
}

// NewJSONL opens (or creates) the metrics file in append mode.
func NewJSONL(path, runID string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &JSONL{f: f, runID: runID, now: time.Now}, nil
}

// Scalar appends one metric record.  Encoding errors are swallowed: metrics
// must never take down a training run.
func (j *JSONL) Scalar(name string, value float64, step int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return
	}
	rec := record{
		RunID: j.runID,
		Name:  name,
		Value: value,
		Step:  step,
		TS:    j.now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = j.f.Write(append(data, '\n'))
}

// Close flushes and closes the metrics file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}
