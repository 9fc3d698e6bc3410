// Package config holds the immutable run configuration.  It is created once
// at startup, persisted to the model directory for reproducibility, and
// re-loaded verbatim for test mode.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Config is the full option set of one run.  Read-only after startup.
type Config struct {
	// run identity
	RunID string `json:"run_id"`
	Mode  string `json:"mode"` // "train" or "test", case-insensitive

	// experiment naming
	ModelName string `json:"model_name"`
	Task      string `json:"task"`
	Fv        string `json:"fv"` // feature version
	Predictor string `json:"predictor"`
	Suffix    string `json:"suffix"`
	ModelDir  string `json:"model_dir"`

	// data
	TrainData string `json:"train_data"`
	ValData   string `json:"val_data"`
	TestData  string `json:"test_data"`
	MaxPosLen int    `json:"max_pos_len"`

	// model dimensions
	ModelType string `json:"model_type"` // "vslnet" or "vslbase"
	WordSize  int    `json:"word_size"`
	WordDim   int    `json:"word_dim"`
	VideoDim  int    `json:"video_dim"`
	Dim       int    `json:"dim"`

	// optimization
	Epochs           int     `json:"epochs"`
	BatchSize        int     `json:"batch_size"`
	InitLR           float64 `json:"init_lr"`
	WarmupProportion float64 `json:"warmup_proportion"`
	ClipNorm         float64 `json:"clip_norm"`
	HighlightLambda  float64 `json:"highlight_lambda"`
	Seed             int64   `json:"seed"`

	// regime
	Pretrain             bool   `json:"pretrain"`
	ResumeFromCheckpoint string `json:"resume_from_checkpoint"`
	StrictResume         bool   `json:"strict_resume"`

	// telemetry
	LogFreq       int    `json:"log_freq"`
	TelemetryPath string `json:"telemetry_path"`
	MonitorAddr   string `json:"monitor_addr"`
}

// Default returns the baseline configuration, matching the option defaults
// the experiments were run with.
func Default() Config {
	return Config{
		Mode:             "train",
		ModelName:        "vslnet",
		Task:             "nlq_official_v1",
		Fv:               "official",
		Predictor:        "bert",
		ModelDir:         "checkpoints",
		MaxPosLen:        128,
		ModelType:        "vslnet",
		WordDim:          32,
		VideoDim:         128,
		Dim:              64,
		Epochs:           10,
		BatchSize:        16,
		InitLR:           0.0025,
		WarmupProportion: 0.0,
		ClipNorm:         1.0,
		HighlightLambda:  5.0,
		Seed:             12345,
		LogFreq:          32,
	}
}

// Validate checks option consistency before a run starts.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Mode)
	if mode != "train" && mode != "test" {
		return fmt.Errorf("config: mode must be train or test, got %q", c.Mode)
	}
	if c.ModelType != "vslnet" && c.ModelType != "vslbase" {
		return fmt.Errorf("config: model_type must be vslnet or vslbase, got %q", c.ModelType)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("config: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.InitLR <= 0 {
		return fmt.Errorf("config: init_lr must be positive, got %v", c.InitLR)
	}
	return nil
}

// HomeDir returns the experiment directory derived from the naming options:
// <model_dir>/<model_name>_<task>_<fv>_<max_pos_len>_<predictor>[_<suffix>].
func (c *Config) HomeDir() string {
	parts := []string{c.ModelName, c.Task, c.Fv, fmt.Sprintf("%d", c.MaxPosLen), c.Predictor}
	dir := strings.Join(parts, "_")
	if c.Suffix != "" {
		dir += "_" + c.Suffix
	}
	return filepath.Join(c.ModelDir, dir)
}

// ModelHome returns the model subdirectory where configs, checkpoints and
// score logs live.
func (c *Config) ModelHome() string {
	return filepath.Join(c.HomeDir(), "model")
}

// Save writes the configuration as pretty JSON with sorted keys.
func (c *Config) Save(path string) error {
	// round-trip through a map so the keys come out sorted
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved configuration.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}
