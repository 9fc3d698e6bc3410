// Package monitor exposes live training progress over HTTP.  The trainer
// updates a mutex-guarded snapshot; GET /status and GET /metrics serve it.
package monitor

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// Snapshot is the current state of the run as seen by the monitor.
type Snapshot struct {
	RunID         string             `json:"run_id"`
	Mode          string             `json:"mode"`
	Regime        string             `json:"regime"`
	Epoch         int                `json:"epoch"`
	Step          int                `json:"step"`
	TotalLoss     float64            `json:"total_loss"`
	LocLoss       float64            `json:"loc_loss"`
	HighlightLoss float64            `json:"highlight_loss"`
	LR            float64            `json:"lr"`
	BestMetric    float64            `json:"best_metric"`
	Scores        map[string]float64 `json:"scores,omitempty"`
}

// Monitor holds the snapshot behind a mutex.
type Monitor struct {
	mu   sync.Mutex
	snap Snapshot
}

// New creates a monitor for the given run.
func New(runID, mode, regime string) *Monitor {
	return &Monitor{snap: Snapshot{
		RunID:      runID,
		Mode:       mode,
		Regime:     regime,
		BestMetric: -1,
	}}
}

// Update applies fn to the snapshot under the lock.
func (m *Monitor) Update(fn func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
}

// Snapshot returns a copy of the current snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap
	if m.snap.Scores != nil {
		snap.Scores = make(map[string]float64, len(m.snap.Scores))
		for k, v := range m.snap.Scores {
			snap.Scores[k] = v
		}
	}
	return snap
}

// Register mounts the monitor routes on the echo instance.
func (m *Monitor) Register(e *echo.Echo) {
	e.GET("/status", m.handleStatus)
	e.GET("/metrics", m.handleMetrics)
}

func (m *Monitor) handleStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, m.Snapshot())
}

func (m *Monitor) handleMetrics(c *echo.Context) error {
	snap := m.Snapshot()
	if snap.Scores == nil {
		snap.Scores = map[string]float64{}
	}
	return c.JSON(http.StatusOK, snap.Scores)
}

// Serve runs the monitor HTTP server until the context is cancelled.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	e := echo.New()
	e.Use(middleware.Recover())
	m.Register(e)
	sc := echo.StartConfig{Address: addr}
	return sc.Start(ctx, e)
}
