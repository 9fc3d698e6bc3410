package train

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/checkpoint"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/config"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/dataset"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/eval"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/logger"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/monitor"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/optim"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/telemetry"
)

// keepCheckpoints is the retention bound for metric-gated checkpoints.
const keepCheckpoints = 3

// Trainer owns the training loop.  It has exclusive ownership of the model
// state for the duration of Run; the checkpoint store only ever receives
// deep copies.
type Trainer struct {
	Cfg       *config.Config
	Regime    Regime
	Model     *model.Localizer
	Opt       *optim.AdamW
	Sched     *optim.LinearWarmup
	TrainSet  *dataset.Loader
	ValSet    *dataset.Loader
	Store     *checkpoint.Store
	Log       logger.Logger
	Telemetry telemetry.Sink
	Monitor   *monitor.Monitor

	step       int
	bestMetric float64
}

// Step returns the global step counter.
func (t *Trainer) Step() int { return t.step }

// BestMetric returns the highest primary validation score seen so far, or
// -1 before the first metric-gated evaluation.
func (t *Trainer) BestMetric() float64 { return t.bestMetric }

// shouldEval reports whether the evaluation cadence fires at the given
// step: twice per epoch plus at every epoch boundary.  Coinciding triggers
// fire a single evaluation.
func shouldEval(step, evalPeriod, batchesPerEpoch int) bool {
	return step%evalPeriod == 0 || step%batchesPerEpoch == 0
}

// Run drives the full training loop.
func (t *Trainer) Run(ctx context.Context) error {
	if t.Telemetry == nil {
		t.Telemetry = telemetry.Nop{}
	}
	t.step = 0
	t.bestMetric = -1

	batches := t.TrainSet.Batches()
	if batches == 0 {
		return dataset.ErrEmptyDataset
	}
	evalPeriod := batches / 2
	if evalPeriod == 0 {
		evalPeriod = batches
	}

	modelHome := t.Cfg.ModelHome()
	scoreLog, err := os.Create(filepath.Join(modelHome, "eval_results.txt"))
	if err != nil {
		return fmt.Errorf("train: open score log: %w", err)
	}
	defer func() { _ = scoreLog.Close() }()

	t.Log.Info("start training",
		"regime", t.Regime.String(),
		"epochs", t.Cfg.Epochs,
		"batches_per_epoch", batches,
		"eval_period", evalPeriod,
		"warmup_steps", t.Sched.Warmup())

	hlWeight := float32(t.Cfg.HighlightLambda)
	for epoch := 0; epoch < t.Cfg.Epochs; epoch++ {
		t.Model.SetTraining(true)
		t.TrainSet.Shuffle(epoch)
		for b := 0; b < batches; b++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.step++

			batch := t.TrainSet.Batch(b)
			out := t.Model.Forward(batch)
			locLoss := t.Model.ComputeLoss(out)
			totalLoss := locLoss
			var hlLoss float32
			if t.Model.UsesHighlight() {
				hlLoss = t.Model.ComputeHighlightLoss(out)
				totalLoss += hlWeight * hlLoss
			}

			t.Opt.ZeroGrad()
			t.Model.Backward(out, hlWeight)
			optim.ClipGradNorm(t.Model.Parameters(), t.Cfg.ClipNorm)
			t.Opt.Step()
			t.Sched.Step(t.Opt)

			if t.Cfg.LogFreq > 0 && t.step%t.Cfg.LogFreq == 0 {
				t.Telemetry.Scalar("Loss/Total", float64(totalLoss), t.step)
				t.Telemetry.Scalar("Loss/Loc", float64(locLoss), t.step)
				if t.Model.UsesHighlight() {
					t.Telemetry.Scalar("Loss/Highlight", float64(hlLoss), t.step)
				}
				t.Telemetry.Scalar("LR", t.Opt.LR(), t.step)
				t.Log.Debug("train step",
					"epoch", epoch+1, "step", t.step,
					"loss", totalLoss, "loc_loss", locLoss, "lr", t.Opt.LR())
			}
			if t.Monitor != nil {
				t.Monitor.Update(func(s *monitor.Snapshot) {
					s.Epoch = epoch + 1
					s.Step = t.step
					s.TotalLoss = float64(totalLoss)
					s.LocLoss = float64(locLoss)
					s.HighlightLoss = float64(hlLoss)
					s.LR = t.Opt.LR()
					s.BestMetric = t.bestMetric
				})
			}

			if shouldEval(t.step, evalPeriod, batches) {
				if err := t.runEvaluation(epoch, scoreLog); err != nil {
					return err
				}
			}
		}
	}

	// pretraining keeps exactly the single final checkpoint, unranked
	if t.Regime == Pretrain {
		path, err := t.Store.Save(t.Model.State(), t.step)
		if err != nil {
			return fmt.Errorf("train: save final pretrain checkpoint: %w", err)
		}
		t.Log.Info("pretraining finished, final checkpoint saved", "path", path)
	}
	return nil
}

// runEvaluation switches the model to inference mode, scores the validation
// set, appends the report to the score log, and performs the metric-gated
// checkpoint save outside pretraining.
func (t *Trainer) runEvaluation(epoch int, scoreLog *os.File) error {
	t.Model.SetTraining(false)
	defer t.Model.SetTraining(true)

	modelHome := t.Cfg.ModelHome()
	dumpPath := filepath.Join(modelHome,
		fmt.Sprintf("%s_%d_%d_preds.json", t.Cfg.ModelName, epoch, t.step))
	scores, miou, report, err := eval.Evaluate(t.Model, t.ValSet, eval.Options{
		Mode:     "val",
		Epoch:    epoch + 1,
		Step:     t.step,
		DumpPath: dumpPath,
	})
	if err != nil {
		return fmt.Errorf("train: evaluation at step %d: %w", t.step, err)
	}
	t.Log.Info("evaluation", "epoch", epoch+1, "step", t.step,
		"primary", scores[0][0], "miou", miou)

	if _, err := scoreLog.WriteString(report.Text); err != nil {
		return fmt.Errorf("train: score log: %w", err)
	}
	if err := scoreLog.Sync(); err != nil {
		return fmt.Errorf("train: score log sync: %w", err)
	}

	for name, value := range report.Metrics {
		t.Telemetry.Scalar("Val/"+name, value, t.step)
	}
	if t.Monitor != nil {
		t.Monitor.Update(func(s *monitor.Snapshot) {
			s.Scores = report.Metrics
		})
	}

	// primary ranking metric gates checkpoints; ties keep the newer model
	if t.Regime != Pretrain && scores[0][0] >= t.bestMetric {
		t.bestMetric = scores[0][0]
		path, err := t.Store.Save(t.Model.State(), t.step)
		if err != nil {
			return fmt.Errorf("train: save checkpoint: %w", err)
		}
		if err := t.Store.Prune(keepCheckpoints); err != nil {
			return err
		}
		t.Log.Info("checkpoint saved", "path", path, "metric", t.bestMetric)
	}
	return nil
}
