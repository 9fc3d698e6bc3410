package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the user defaults file (~/.config/nlq/config.yaml).
// All optional fields are pointers so we can distinguish "not set" from zero
// values.
type FileConfig struct {
	ModelDir string `yaml:"model_dir"`

	// Optimization defaults
	Epochs          *int64   `yaml:"epochs"`
	BatchSize       *int64   `yaml:"batch_size"`
	InitLR          *float64 `yaml:"init_lr"`
	ClipNorm        *float64 `yaml:"clip_norm"`
	HighlightLambda *float64 `yaml:"highlight_lambda"`
	Seed            *int64   `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Telemetry
	TelemetryPath string `yaml:"telemetry_path"`
	MonitorAddr   string `yaml:"monitor_addr"`
}

func fileConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nlq", "config.yaml")
}

// applyFileConfig applies defaults from the config file to flags the user
// did not set explicitly.
func applyFileConfig(c *cli.Command, cfg FileConfig) {
	if cfg.ModelDir != "" && !c.IsSet("model-dir") {
		modelDir = cfg.ModelDir
	}
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		epochs = *cfg.Epochs
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		batchSize = *cfg.BatchSize
	}
	if cfg.InitLR != nil && !c.IsSet("init-lr") && !c.IsSet("lr") {
		initLR = *cfg.InitLR
	}
	if cfg.ClipNorm != nil && !c.IsSet("clip-norm") {
		clipNorm = *cfg.ClipNorm
	}
	if cfg.HighlightLambda != nil && !c.IsSet("highlight-lambda") {
		highlightLambda = *cfg.HighlightLambda
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.TelemetryPath != "" && !c.IsSet("telemetry") {
		telemetryPath = cfg.TelemetryPath
	}
	if cfg.MonitorAddr != "" && !c.IsSet("monitor-addr") {
		monitorAddr = cfg.MonitorAddr
	}
}

// loadFileConfig reads the defaults file. Returns a zero FileConfig if the
// file doesn't exist.
func loadFileConfig() FileConfig {
	path := fileConfigPath()
	if path == "" {
		return FileConfig{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}
	}
	return cfg
}
