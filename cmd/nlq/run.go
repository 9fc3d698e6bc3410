package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/checkpoint"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/config"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/dataset"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/eval"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/logger"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/monitor"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/telemetry"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/train"
)

func runCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "run mode (train, test)",
			Value:       "train",
			Destination: &mode,
		},
	}
	flags = append(flags, namingFlags()...)
	flags = append(flags, dataFlags()...)
	flags = append(flags, modelFlags()...)
	flags = append(flags, optimFlags()...)
	flags = append(flags, regimeFlags()...)
	flags = append(flags, telemetryFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Train the localizer or evaluate a trained model directory",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyFileConfig(cmd, loadFileConfig())
			log := buildLogger()
			ctx = logger.WithContext(ctx, log)

			cfg := configFromFlags()
			switch strings.ToLower(cfg.Mode) {
			case "train":
				return runTrain(ctx, &cfg)
			case "test":
				return runTest(ctx, &cfg)
			default:
				return fmt.Errorf("unknown mode %q (want train or test)", cfg.Mode)
			}
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Text(os.Stderr, level)
}

func configFromFlags() config.Config {
	cfg := config.Default()
	cfg.Mode = mode
	cfg.ModelName = modelName
	cfg.Task = task
	cfg.Fv = fv
	cfg.Predictor = predictor
	cfg.Suffix = suffix
	cfg.ModelDir = modelDir
	cfg.TrainData = trainData
	cfg.ValData = valData
	cfg.TestData = testData
	cfg.MaxPosLen = int(maxPosLen)
	cfg.ModelType = modelType
	cfg.WordDim = int(wordDim)
	cfg.VideoDim = int(videoDim)
	cfg.Dim = int(hiddenDim)
	cfg.Epochs = int(epochs)
	cfg.BatchSize = int(batchSize)
	cfg.InitLR = initLR
	cfg.WarmupProportion = warmupProportion
	cfg.ClipNorm = clipNorm
	cfg.HighlightLambda = highlightLambda
	cfg.Seed = seed
	cfg.Pretrain = pretrain
	cfg.ResumeFromCheckpoint = resumeFrom
	cfg.StrictResume = strictResume
	cfg.LogFreq = int(logFreq)
	cfg.TelemetryPath = telemetryPath
	cfg.MonitorAddr = monitorAddr
	return cfg
}

func buildModel(cfg *config.Config) (*model.Localizer, error) {
	variant, err := model.ParseVariant(cfg.ModelType)
	if err != nil {
		return nil, err
	}
	return model.New(model.Config{
		Variant:   variant,
		VocabSize: cfg.WordSize,
		WordDim:   cfg.WordDim,
		VideoDim:  cfg.VideoDim,
		Dim:       cfg.Dim,
		Seed:      cfg.Seed,
	})
}

// vocabSize derives the vocabulary size from the token ids seen in the data.
func vocabSize(sets ...[]dataset.Sample) int {
	maxTok := 0
	for _, set := range sets {
		for i := range set {
			for _, tok := range set[i].Tokens {
				if tok > maxTok {
					maxTok = tok
				}
			}
		}
	}
	return maxTok + 1
}

func runTrain(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.TrainData == "" || cfg.ValData == "" {
		return errors.New("train mode requires --train-data and --val-data")
	}
	cfg.RunID = uuid.NewString()

	trainSamples, err := dataset.Load(cfg.TrainData)
	if err != nil {
		return err
	}
	valSamples, err := dataset.Load(cfg.ValData)
	if err != nil {
		return err
	}
	if cfg.WordSize <= 0 {
		cfg.WordSize = vocabSize(trainSamples, valSamples)
	}

	modelHome := cfg.ModelHome()
	if err := os.MkdirAll(modelHome, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := cfg.Save(filepath.Join(modelHome, "configs.json")); err != nil {
		return err
	}
	log.Info("run configured", "run_id", cfg.RunID, "model_dir", modelHome)

	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	regime := train.Classify(cfg.ResumeFromCheckpoint, cfg.Pretrain)
	log.Info("regime selected", "regime", regime.String())
	outcome := train.Apply(m, regime, cfg.ResumeFromCheckpoint, log)
	if outcome.Err != nil {
		if cfg.StrictResume {
			return fmt.Errorf("resume checkpoint %s: %w", outcome.Path, outcome.Err)
		}
		log.Warn("resume checkpoint load failed, continuing with current parameters",
			"path", outcome.Path, "error", outcome.Err)
	}

	trainLoader, err := dataset.NewLoader(trainSamples, cfg.BatchSize, cfg.Seed)
	if err != nil {
		return err
	}
	valLoader, err := dataset.NewLoader(valSamples, cfg.BatchSize, cfg.Seed)
	if err != nil {
		return err
	}

	opt, sched := train.BuildOptimizer(m, cfg, regime, trainLoader.Batches())

	var sink telemetry.Sink = telemetry.Nop{}
	if cfg.TelemetryPath != "" {
		jsonl, err := telemetry.NewJSONL(cfg.TelemetryPath, cfg.RunID)
		if err != nil {
			return err
		}
		defer func() { _ = jsonl.Close() }()
		sink = jsonl
	}

	var mon *monitor.Monitor
	if cfg.MonitorAddr != "" {
		mon = monitor.New(cfg.RunID, cfg.Mode, regime.String())
		go func() {
			if err := mon.Serve(ctx, cfg.MonitorAddr); err != nil {
				log.Warn("monitor stopped", "error", err)
			}
		}()
		log.Info("monitor listening", "addr", cfg.MonitorAddr)
	}

	trainer := &train.Trainer{
		Cfg:       cfg,
		Regime:    regime,
		Model:     m,
		Opt:       opt,
		Sched:     sched,
		TrainSet:  trainLoader,
		ValSet:    valLoader,
		Store:     checkpoint.NewStore(modelHome, cfg.ModelName),
		Log:       log,
		Telemetry: sink,
		Monitor:   mon,
	}
	return trainer.Run(ctx)
}

func runTest(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)
	modelHome := cfg.ModelHome()
	if _, err := os.Stat(modelHome); err != nil {
		return fmt.Errorf("no trained model directory at %s", modelHome)
	}

	// reconstruct the training-time configuration
	saved, err := config.Load(filepath.Join(modelHome, "configs.json"))
	if err != nil {
		return err
	}
	saved.Mode = "test"
	if cfg.TestData != "" {
		saved.TestData = cfg.TestData
	}
	if saved.TestData == "" {
		return errors.New("test mode requires --test-data")
	}

	testSamples, err := dataset.Load(saved.TestData)
	if err != nil {
		return err
	}

	m, err := buildModel(&saved)
	if err != nil {
		return err
	}
	store := checkpoint.NewStore(modelHome, saved.ModelName)
	snap, ckptPath, err := store.LoadLatest()
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fmt.Errorf("no checkpoints in %s", modelHome)
		}
		return err
	}
	if err := m.LoadState(snap); err != nil {
		return err
	}
	log.Info("loaded checkpoint", "path", ckptPath)

	testLoader, err := dataset.NewLoader(testSamples, saved.BatchSize, saved.Seed)
	if err != nil {
		return err
	}

	m.SetTraining(false)
	dumpPath := strings.TrimSuffix(ckptPath, filepath.Ext(ckptPath)) + "_test_result.json"
	_, _, report, err := eval.Evaluate(m, testLoader, eval.Options{
		Mode:     "test",
		DumpPath: dumpPath,
	})
	if err != nil {
		return err
	}
	fmt.Print(report.Text)
	return nil
}
