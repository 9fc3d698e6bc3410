// Package model implements the query localization network: a freezable text
// encoder, a video feature projection, a fusion layer, and heads predicting
// per-frame highlight scores and the start/end frame of the queried moment.
package model

import (
	"fmt"
	"strings"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"
)

// Variant selects the network flavour.  VariantNet carries the highlight
// head and its guidance loss; VariantBase predicts spans directly.
type Variant string

const (
	VariantNet  Variant = "vslnet"
	VariantBase Variant = "vslbase"
)

// ParseVariant normalises a variant string.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case string(VariantNet):
		return VariantNet, nil
	case string(VariantBase):
		return VariantBase, nil
	default:
		return "", fmt.Errorf("model: unknown variant %q", s)
	}
}

// Config describes the network dimensions.
type Config struct {
	Variant   Variant
	VocabSize int
	WordDim   int
	VideoDim  int
	Dim       int
	Seed      int64
}

// Localizer is the moment localization network.  The text encoder sub-module
// (every parameter named "encoder.*") starts frozen; fine-tuning unfreezes it.
type Localizer struct {
	cfg Config

	embed   *nn.Parameter
	encNorm *nn.LayerNorm
	encProj *nn.Linear

	videoProj *nn.Linear
	fusion    *nn.Linear
	highlight *nn.Linear
	startHead *nn.Linear
	endHead   *nn.Linear

	params   []*nn.Parameter
	training bool
}

// New constructs a localizer from the given config.  Weights are seeded
// deterministically, so equal configs produce identical initial parameters.
func New(cfg Config) (*Localizer, error) {
	if cfg.VocabSize <= 0 || cfg.WordDim <= 0 || cfg.VideoDim <= 0 || cfg.Dim <= 0 {
		return nil, fmt.Errorf("model: invalid dimensions %+v", cfg)
	}
	if cfg.Variant != VariantNet && cfg.Variant != VariantBase {
		return nil, fmt.Errorf("model: unknown variant %q", cfg.Variant)
	}

	m := &Localizer{
		cfg:       cfg,
		embed:     nn.NewParameter("encoder.embed.weight", cfg.VocabSize, cfg.WordDim, cfg.Seed+1),
		encNorm:   nn.NewLayerNorm("encoder", cfg.WordDim),
		encProj:   nn.NewLinear("encoder.proj", cfg.WordDim, cfg.Dim, cfg.Seed+2),
		videoProj: nn.NewLinear("video.proj", cfg.VideoDim, cfg.Dim, cfg.Seed+3),
		fusion:    nn.NewLinear("fusion", 2*cfg.Dim, cfg.Dim, cfg.Seed+4),
		highlight: nn.NewLinear("highlight", cfg.Dim, 1, cfg.Seed+5),
		startHead: nn.NewLinear("predictor.start", cfg.Dim, 1, cfg.Seed+6),
		endHead:   nn.NewLinear("predictor.end", cfg.Dim, 1, cfg.Seed+7),
		training:  true,
	}

	m.params = append(m.params, m.embed)
	m.params = append(m.params, m.encNorm.Params()...)
	m.params = append(m.params, m.encProj.Params()...)
	m.params = append(m.params, m.videoProj.Params()...)
	m.params = append(m.params, m.fusion.Params()...)
	m.params = append(m.params, m.highlight.Params()...)
	m.params = append(m.params, m.startHead.Params()...)
	m.params = append(m.params, m.endHead.Params()...)

	// the text encoder is frozen until a regime decides otherwise
	m.SetEncoderFrozen(true)
	return m, nil
}

// Variant returns the configured network flavour.
func (m *Localizer) Variant() Variant { return m.cfg.Variant }

// UsesHighlight reports whether the variant carries the highlight guidance loss.
func (m *Localizer) UsesHighlight() bool { return m.cfg.Variant == VariantNet }

// SetTraining toggles training mode.  Evaluation runs with training off and
// the caller restores it afterwards.
func (m *Localizer) SetTraining(on bool) { m.training = on }

// Training reports whether the model is in training mode.
func (m *Localizer) Training() bool { return m.training }

// Parameters returns all parameters in a stable order.
func (m *Localizer) Parameters() []*nn.Parameter { return m.params }

// EncoderParameters returns the text encoder sub-module parameters.
func (m *Localizer) EncoderParameters() []*nn.Parameter {
	out := make([]*nn.Parameter, 0, 6)
	for _, p := range m.params {
		if strings.HasPrefix(p.Name, "encoder.") {
			out = append(out, p)
		}
	}
	return out
}

// SetEncoderFrozen freezes or unfreezes the text encoder parameters.
func (m *Localizer) SetEncoderFrozen(frozen bool) {
	for _, p := range m.EncoderParameters() {
		p.Frozen = frozen
	}
}

// ZeroGrad clears every parameter gradient.
func (m *Localizer) ZeroGrad() {
	for _, p := range m.params {
		p.ZeroGrad()
	}
}

// State returns a deep copy of every parameter tensor keyed by name.
func (m *Localizer) State() map[string]tensor.Mat {
	out := make(map[string]tensor.Mat, len(m.params))
	for _, p := range m.params {
		out[p.Name] = p.Data.Clone()
	}
	return out
}

// LoadState copies a snapshot into the model.  Every parameter must be
// present with a matching shape; the model is untouched on error.
func (m *Localizer) LoadState(state map[string]tensor.Mat) error {
	for _, p := range m.params {
		snap, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("model: snapshot missing parameter %s", p.Name)
		}
		if snap.R != p.Data.R || snap.C != p.Data.C {
			return fmt.Errorf("model: parameter %s shape mismatch: snapshot %dx%d, model %dx%d",
				p.Name, snap.R, snap.C, p.Data.R, p.Data.C)
		}
	}
	for _, p := range m.params {
		snap := state[p.Name]
		for i := 0; i < p.Data.R; i++ {
			copy(p.Data.Row(i), snap.Row(i))
		}
	}
	return nil
}
