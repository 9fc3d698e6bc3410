// Package train drives the training regimes: regime classification,
// parameter freezing, optimizer grouping, and the epoch/batch loop with
// periodic evaluation and checkpointing.
package train

import (
	"fmt"
	"os"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/checkpoint"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/logger"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
)

// Regime is the training configuration, decided once at startup.
type Regime int

const (
	// Standard trains from initialization with the encoder frozen.
	Standard Regime = iota
	// Pretrain trains from initialization and keeps only the final checkpoint.
	Pretrain
	// FineTune resumes from a checkpoint with the encoder unfrozen and
	// differential learning rates.
	FineTune
)

func (r Regime) String() string {
	switch r {
	case Standard:
		return "standard"
	case Pretrain:
		return "pretrain"
	case FineTune:
		return "fine-tune"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Classify derives the regime from the resume path and the pretrain flag.
// A resume path that does not exist is treated as absent.
func Classify(resumePath string, pretrain bool) Regime {
	if pretrain {
		return Pretrain
	}
	if resumePath != "" && pathExists(resumePath) {
		return FineTune
	}
	return Standard
}

// LoadOutcome reports what happened to the resume-checkpoint load.
// Err is non-nil when the path existed but the snapshot could not be
// applied; the caller decides whether that aborts the run.
type LoadOutcome struct {
	Attempted bool
	Path      string
	Err       error
}

// Apply performs the regime's side effects on the model: loading the resume
// checkpoint when one is present, and setting the encoder freeze state.
// The checkpoint is loaded whenever the path exists, in every regime; only
// fine-tuning unfreezes the encoder.
func Apply(m *model.Localizer, regime Regime, resumePath string, log logger.Logger) LoadOutcome {
	outcome := LoadOutcome{}
	if resumePath != "" && pathExists(resumePath) {
		outcome.Attempted = true
		outcome.Path = resumePath
		log.Info("loading resume checkpoint", "path", resumePath)
		snap, err := checkpoint.LoadFile(resumePath)
		if err == nil {
			err = m.LoadState(snap)
		}
		if err != nil {
			outcome.Err = err
		} else {
			log.Info("resume checkpoint loaded", "path", resumePath)
		}
	}

	if regime == FineTune {
		log.Info("fine-tuning: unfreezing encoder parameters")
		m.SetEncoderFrozen(false)
	} else {
		// standard / pretraining: encoder stays frozen
		m.SetEncoderFrozen(true)
	}
	return outcome
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
