package model

import (
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/dataset"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/nn"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"
)

// Output holds the per-sample predictions of one forward pass, plus the
// cached activations needed to backpropagate through it.
type Output struct {
	HighlightScores [][]float32
	StartLogits     [][]float32
	EndLogits       [][]float32

	batch []dataset.Sample
	acts  []*sampleActs
}

// sampleActs caches the intermediate activations of one sample.
type sampleActs struct {
	q0, q1, q []float32   // pooled embedding, normed, projected
	v         [][]float32 // projected video features, per frame
	h         [][]float32 // fused hidden (post-ReLU), per frame
	hlLogits  []float32   // highlight logits, per frame
	f         [][]float32 // span-head input, per frame

	// loss gradients, filled by the loss computations
	dStart, dEnd, dHl []float32
}

// Forward runs the network over a batch and returns per-frame highlight
// scores and start/end logits for each sample.
func (m *Localizer) Forward(batch []dataset.Sample) *Output {
	out := &Output{
		HighlightScores: make([][]float32, len(batch)),
		StartLogits:     make([][]float32, len(batch)),
		EndLogits:       make([][]float32, len(batch)),
		batch:           batch,
		acts:            make([]*sampleActs, len(batch)),
	}
	for i := range batch {
		acts := m.forwardSample(&batch[i])
		out.acts[i] = acts
		frames := batch[i].Frames()
		scores := make([]float32, frames)
		for t := 0; t < frames; t++ {
			scores[t] = tensor.Sigmoid(acts.hlLogits[t])
		}
		out.HighlightScores[i] = scores
		out.StartLogits[i] = make([]float32, frames)
		out.EndLogits[i] = make([]float32, frames)
		for t := 0; t < frames; t++ {
			var s, e [1]float32
			m.startHead.Forward(acts.f[t], s[:])
			m.endHead.Forward(acts.f[t], e[:])
			out.StartLogits[i][t] = s[0]
			out.EndLogits[i][t] = e[0]
		}
	}
	return out
}

func (m *Localizer) forwardSample(s *dataset.Sample) *sampleActs {
	dim := m.cfg.Dim
	wordDim := m.cfg.WordDim
	frames := s.Frames()

	acts := &sampleActs{
		q0:       make([]float32, wordDim),
		q1:       make([]float32, wordDim),
		q:        make([]float32, dim),
		v:        make([][]float32, frames),
		h:        make([][]float32, frames),
		hlLogits: make([]float32, frames),
		f:        make([][]float32, frames),
	}

	// text encoder: mean-pooled embedding, layer norm, projection
	inv := float32(1.0 / float64(len(s.Tokens)))
	for _, tok := range s.Tokens {
		tensor.Axpy(inv, acts.q0, m.embed.Data.Row(tok%m.cfg.VocabSize))
	}
	m.encNorm.Forward(acts.q0, acts.q1)
	m.encProj.Forward(acts.q1, acts.q)

	// per-frame projection, fusion, heads
	concat := make([]float32, 2*dim)
	for t := 0; t < frames; t++ {
		v := make([]float32, dim)
		m.videoProj.Forward(s.Vfeats[t], v)
		acts.v[t] = v

		copy(concat[:dim], v)
		copy(concat[dim:], acts.q)
		h := make([]float32, dim)
		m.fusion.Forward(concat, h)
		tensor.ReLU(h)
		acts.h[t] = h

		var hl [1]float32
		m.highlight.Forward(h, hl[:])
		acts.hlLogits[t] = hl[0]

		if m.cfg.Variant == VariantNet {
			f := make([]float32, dim)
			score := tensor.Sigmoid(hl[0])
			for d := range f {
				f[d] = h[d] * score
			}
			acts.f[t] = f
		} else {
			acts.f[t] = h
		}
	}
	return acts
}

// ComputeLoss computes the batch-mean localization loss (start plus end span
// cross-entropy) and records its logit gradients for Backward.
func (m *Localizer) ComputeLoss(out *Output) float32 {
	if len(out.batch) == 0 {
		return 0
	}
	inv := float32(1.0 / float64(len(out.batch)))
	var total float32
	for i := range out.batch {
		s := &out.batch[i]
		lossS, gradS := nn.SpanCrossEntropy(out.StartLogits[i], s.StartIdx)
		lossE, gradE := nn.SpanCrossEntropy(out.EndLogits[i], s.EndIdx)
		total += (lossS + lossE) * inv
		tensor.Scale(inv, gradS)
		tensor.Scale(inv, gradE)
		out.acts[i].dStart = gradS
		out.acts[i].dEnd = gradE
	}
	return total
}

// ComputeHighlightLoss computes the batch-mean highlight guidance loss and
// records its logit gradients for Backward.  Only meaningful for VariantNet.
func (m *Localizer) ComputeHighlightLoss(out *Output) float32 {
	if len(out.batch) == 0 {
		return 0
	}
	inv := float32(1.0 / float64(len(out.batch)))
	var total float32
	for i := range out.batch {
		s := &out.batch[i]
		loss, grad := nn.HighlightBCE(out.acts[i].hlLogits, s.Highlights)
		total += loss * inv
		tensor.Scale(inv, grad)
		out.acts[i].dHl = grad
	}
	return total
}

// Backward propagates the recorded loss gradients into the parameter
// gradients.  The highlight gradients are scaled by hlWeight, matching a
// total loss of loc + hlWeight*highlight.  ComputeLoss must have run on out.
func (m *Localizer) Backward(out *Output, hlWeight float32) {
	dim := m.cfg.Dim
	for i := range out.batch {
		s := &out.batch[i]
		acts := out.acts[i]
		frames := s.Frames()

		dq := make([]float32, dim)
		concat := make([]float32, 2*dim)
		dconcat := make([]float32, 2*dim)
		for t := 0; t < frames; t++ {
			// span heads
			df := make([]float32, dim)
			m.startHead.Backward(acts.f[t], []float32{acts.dStart[t]}, df)
			m.endHead.Backward(acts.f[t], []float32{acts.dEnd[t]}, df)

			dh := make([]float32, dim)
			var dHlLogit float32
			if m.cfg.Variant == VariantNet {
				score := tensor.Sigmoid(acts.hlLogits[t])
				// f = h * score: gradient splits between h and the score logit
				tensor.Axpy(score, dh, df)
				dHlLogit = tensor.Dot(df, acts.h[t]) * score * (1 - score)
			} else {
				copy(dh, df)
			}
			if acts.dHl != nil {
				dHlLogit += hlWeight * acts.dHl[t]
			}
			m.highlight.Backward(acts.h[t], []float32{dHlLogit}, dh)

			// ReLU mask on the fused hidden
			for d := 0; d < dim; d++ {
				if acts.h[t][d] <= 0 {
					dh[d] = 0
				}
			}

			copy(concat[:dim], acts.v[t])
			copy(concat[dim:], acts.q)
			tensor.Zero(dconcat)
			m.fusion.Backward(concat, dh, dconcat)

			dv := dconcat[:dim]
			tensor.Add(dq, dconcat[dim:])
			m.videoProj.Backward(s.Vfeats[t], dv, nil)
		}

		// text encoder
		dq1 := make([]float32, m.cfg.WordDim)
		m.encProj.Backward(acts.q1, dq, dq1)
		dq0 := make([]float32, m.cfg.WordDim)
		m.encNorm.Backward(acts.q0, dq1, dq0)
		if !m.embed.Frozen {
			inv := float32(1.0 / float64(len(s.Tokens)))
			for _, tok := range s.Tokens {
				tensor.Axpy(inv, m.embed.Grad.Row(tok%m.cfg.VocabSize), dq0)
			}
		}
	}
}
