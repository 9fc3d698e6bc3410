package main

import "github.com/urfave/cli/v3"

var (
	mode      string
	modelName string
	task      string
	fv        string
	predictor string
	suffix    string
	modelDir  string

	trainData string
	valData   string
	testData  string
	maxPosLen int64

	modelType string
	wordDim   int64
	videoDim  int64
	hiddenDim int64

	epochs           int64
	batchSize        int64
	initLR           float64
	warmupProportion float64
	clipNorm         float64
	highlightLambda  float64
	seed             int64

	pretrain     bool
	resumeFrom   string
	strictResume bool

	logFreq       int64
	telemetryPath string
	monitorAddr   string

	logLevel  string
	logFormat string
	debug     bool
)

func namingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-name",
			Usage:       "experiment model name",
			Value:       "vslnet",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "task",
			Usage:       "dataset task tag",
			Value:       "nlq_official_v1",
			Destination: &task,
		},
		&cli.StringFlag{
			Name:        "fv",
			Usage:       "video feature version tag",
			Value:       "official",
			Destination: &fv,
		},
		&cli.StringFlag{
			Name:        "predictor",
			Usage:       "query predictor tag",
			Value:       "bert",
			Destination: &predictor,
		},
		&cli.StringFlag{
			Name:        "suffix",
			Usage:       "optional experiment directory suffix",
			Destination: &suffix,
		},
		&cli.StringFlag{
			Name:        "model-dir",
			Usage:       "root directory for experiment output",
			Value:       "checkpoints",
			Destination: &modelDir,
		},
	}
}

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "train-data",
			Usage:       "path to training set JSON",
			Destination: &trainData,
		},
		&cli.StringFlag{
			Name:        "val-data",
			Usage:       "path to validation set JSON",
			Destination: &valData,
		},
		&cli.StringFlag{
			Name:        "test-data",
			Usage:       "path to test set JSON",
			Destination: &testData,
		},
		&cli.Int64Flag{
			Name:        "max-pos-len",
			Usage:       "max video positions per sample",
			Value:       128,
			Destination: &maxPosLen,
		},
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-type",
			Usage:       "network variant (vslnet, vslbase)",
			Value:       "vslnet",
			Destination: &modelType,
		},
		&cli.Int64Flag{
			Name:        "word-dim",
			Usage:       "word embedding dimension",
			Value:       32,
			Destination: &wordDim,
		},
		&cli.Int64Flag{
			Name:        "video-dim",
			Usage:       "video feature dimension",
			Value:       128,
			Destination: &videoDim,
		},
		&cli.Int64Flag{
			Name:        "dim",
			Usage:       "hidden dimension",
			Value:       64,
			Destination: &hiddenDim,
		},
	}
}

func optimFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "epochs",
			Usage:       "training epochs",
			Value:       10,
			Destination: &epochs,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Usage:       "batch size",
			Value:       16,
			Destination: &batchSize,
		},
		&cli.Float64Flag{
			Name:        "init-lr",
			Aliases:     []string{"lr"},
			Usage:       "initial learning rate",
			Value:       0.0025,
			Destination: &initLR,
		},
		&cli.Float64Flag{
			Name:        "warmup-proportion",
			Usage:       "fraction of steps spent in linear warmup",
			Value:       0.0,
			Destination: &warmupProportion,
		},
		&cli.Float64Flag{
			Name:        "clip-norm",
			Usage:       "max global gradient norm",
			Value:       1.0,
			Destination: &clipNorm,
		},
		&cli.Float64Flag{
			Name:        "highlight-lambda",
			Usage:       "highlight loss weight (vslnet only)",
			Value:       5.0,
			Destination: &highlightLambda,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed",
			Value:       12345,
			Destination: &seed,
		},
	}
}

func regimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "pretrain",
			Usage:       "pretraining run: keep only the final checkpoint",
			Destination: &pretrain,
		},
		&cli.StringFlag{
			Name:        "resume-from-checkpoint",
			Aliases:     []string{"resume"},
			Usage:       "checkpoint to load before training (enables fine-tuning)",
			Destination: &resumeFrom,
		},
		&cli.BoolFlag{
			Name:        "strict-resume",
			Usage:       "abort when the resume checkpoint fails to load",
			Destination: &strictResume,
		},
	}
}

func telemetryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "log-freq",
			Usage:       "emit training loss metrics every N steps",
			Value:       32,
			Destination: &logFreq,
		},
		&cli.StringFlag{
			Name:        "telemetry",
			Usage:       "path to a JSONL metrics file (empty disables)",
			Destination: &telemetryPath,
		},
		&cli.StringFlag{
			Name:        "monitor-addr",
			Usage:       "listen address for the live status endpoint (empty disables)",
			Destination: &monitorAddr,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
