// Package eval runs the model in inference mode over a held-out set and
// scores the predicted moments: Recall@1 at IoU thresholds plus mean IoU.
// It never mutates model state.
package eval

import (
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/dataset"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
)

// Thresholds are the IoU overlaps at which Recall@1 is reported.  The first
// entry is the primary ranking metric used for checkpoint gating.
var Thresholds = []float64{0.3, 0.5, 0.7}

// QueryResult is one scored prediction, dumped to the predictions file.
type QueryResult struct {
	QueryID   string  `json:"query_id"`
	VideoID   string  `json:"video_id"`
	PredStart float64 `json:"pred_start"`
	PredEnd   float64 `json:"pred_end"`
	GTStart   float64 `json:"gt_start"`
	GTEnd     float64 `json:"gt_end"`
	IoU       float64 `json:"iou"`
}

// Report is the human-readable score block plus the same values keyed by
// metric name for telemetry.
type Report struct {
	Text    string
	Metrics map[string]float64
}

// Options control one evaluation pass.
type Options struct {
	Mode     string // "val" or "test"
	Epoch    int
	Step     int
	DumpPath string // prediction dump location; empty disables the dump
}

// Evaluate scores the model over the loader.  It returns the ranking score
// matrix (one row per IoU threshold, Recall@1 in column 0, so scores[0][0]
// is the primary metric), the mean IoU, and the report.
func Evaluate(m *model.Localizer, loader *dataset.Loader, opts Options) ([][]float64, float64, Report, error) {
	results := make([]QueryResult, 0, loader.Len())
	for b := 0; b < loader.Batches(); b++ {
		batch := loader.Batch(b)
		out := m.Forward(batch)
		for i := range batch {
			s := &batch[i]
			startIdx, endIdx := PredictSpan(out.StartLogits[i], out.EndLogits[i])
			predStart, predEnd := indexToTime(startIdx, endIdx, s)
			results = append(results, QueryResult{
				QueryID:   s.QueryID,
				VideoID:   s.VideoID,
				PredStart: predStart,
				PredEnd:   predEnd,
				GTStart:   s.StartTime,
				GTEnd:     s.EndTime,
				IoU:       TemporalIoU(predStart, predEnd, s.StartTime, s.EndTime),
			})
		}
	}

	scores := make([][]float64, len(Thresholds))
	var iouSum float64
	for _, r := range results {
		iouSum += r.IoU
	}
	n := float64(len(results))
	for ti, th := range Thresholds {
		hits := 0
		for _, r := range results {
			if r.IoU >= th {
				hits++
			}
		}
		scores[ti] = []float64{100 * float64(hits) / n}
	}
	miou := 100 * iouSum / n

	report := buildReport(scores, miou, opts)
	if opts.DumpPath != "" {
		if err := dumpPredictions(opts.DumpPath, results); err != nil {
			return nil, 0, Report{}, err
		}
	}
	return scores, miou, report, nil
}

// PredictSpan picks the start frame with the highest start logit and the
// end frame at or after it with the highest end logit.
func PredictSpan(startLogits, endLogits []float32) (int, int) {
	start := argmax(startLogits, 0)
	end := argmax(endLogits, start)
	return start, end
}

// TemporalIoU computes the intersection-over-union of two time intervals.
func TemporalIoU(aStart, aEnd, bStart, bEnd float64) float64 {
	inter := min(aEnd, bEnd) - max(aStart, bStart)
	if inter <= 0 {
		return 0
	}
	union := max(aEnd, bEnd) - min(aStart, bStart)
	if union <= 0 {
		return 0
	}
	return inter / union
}

func indexToTime(startIdx, endIdx int, s *dataset.Sample) (float64, float64) {
	frames := float64(s.Frames())
	unit := s.Duration / frames
	return float64(startIdx) * unit, float64(endIdx+1) * unit
}

func buildReport(scores [][]float64, miou float64, opts Options) Report {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Epoch %d, Step %d [%s]:\n", opts.Epoch, opts.Step, opts.Mode)
	metrics := make(map[string]float64, len(Thresholds)+1)
	for ti, th := range Thresholds {
		name := fmt.Sprintf("Rank@1, IoU=%.1f", th)
		fmt.Fprintf(&sb, "%s: %.2f\n", name, scores[ti][0])
		metrics[name] = scores[ti][0]
	}
	fmt.Fprintf(&sb, "mean IoU: %.2f\n", miou)
	metrics["mIoU"] = miou
	return Report{Text: sb.String(), Metrics: metrics}
}

func dumpPredictions(path string, results []QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("eval: encode predictions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("eval: write %s: %w", path, err)
	}
	return nil
}

func argmax(x []float32, from int) int {
	best := from
	for i := from + 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}
