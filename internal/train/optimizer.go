package train

import (
	"strings"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/config"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/optim"
)

// encoderLRFactor scales the encoder learning rate during fine-tuning.
const encoderLRFactor = 0.1

// noDecayPatterns mark parameters exempt from weight decay.
var noDecayPatterns = []string{"bias", "layer_norm", "LayerNorm"}

func isNoDecay(name string) bool {
	for _, pat := range noDecayPatterns {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

// BuildOptimizer constructs the optimizer and schedule for the regime.
//
// Outside fine-tuning every parameter shares one group at the global
// learning rate.  Fine-tuning builds three groups: encoder parameters not
// matching the no-decay patterns at lr*0.1 with weight decay 0.01, encoder
// parameters matching them at lr*0.1 without decay, and everything else at
// the full rate.  Group membership is by parameter identity and each
// parameter lands in exactly one group.
func BuildOptimizer(m *model.Localizer, cfg *config.Config, regime Regime, batchesPerEpoch int) (*optim.AdamW, *optim.LinearWarmup) {
	var groups []optim.Group
	if regime == FineTune {
		encoder := make(map[*nn.Parameter]bool)
		for _, p := range m.EncoderParameters() {
			encoder[p] = true
		}
		var encDecay, encNoDecay, others []*nn.Parameter
		for _, p := range m.Parameters() {
			switch {
			case encoder[p] && isNoDecay(p.Name):
				encNoDecay = append(encNoDecay, p)
			case encoder[p]:
				encDecay = append(encDecay, p)
			default:
				others = append(others, p)
			}
		}
		groups = []optim.Group{
			{Params: encDecay, LR: cfg.InitLR * encoderLRFactor, WeightDecay: 0.01},
			{Params: encNoDecay, LR: cfg.InitLR * encoderLRFactor, WeightDecay: 0.0},
			{Params: others, LR: cfg.InitLR, WeightDecay: 0.01},
		}
	} else {
		groups = []optim.Group{
			{Params: m.Parameters(), LR: cfg.InitLR, WeightDecay: 0.01},
		}
	}

	opt := optim.NewAdamW(groups)
	totalSteps := cfg.Epochs * batchesPerEpoch
	sched := optim.NewLinearWarmup(totalSteps, cfg.WarmupProportion)
	opt.SetLRScale(sched.Factor())
	return opt, sched
}
