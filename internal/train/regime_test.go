package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/checkpoint"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/logger"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/model"
)

func testModel(t *testing.T) *model.Localizer {
	t.Helper()
	m, err := model.New(model.Config{
		Variant:   model.VariantNet,
		VocabSize: 20,
		WordDim:   8,
		VideoDim:  12,
		Dim:       10,
		Seed:      42,
	})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return m
}

func saveCheckpointFile(t *testing.T, m *model.Localizer) string {
	t.Helper()
	store := checkpoint.NewStore(t.TempDir(), "prev")
	path, err := store.Save(m.State(), 100)
	if err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	return path
}

func TestClassify(t *testing.T) {
	t.Parallel()

	existing := filepath.Join(t.TempDir(), "ckpt")
	if err := os.WriteFile(existing, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope")

	cases := []struct {
		name       string
		resumePath string
		pretrain   bool
		want       Regime
	}{
		{"no resume, no pretrain", "", false, Standard},
		{"pretrain flag", "", true, Pretrain},
		{"pretrain wins over resume", existing, true, Pretrain},
		{"existing resume", existing, false, FineTune},
		{"missing resume treated as absent", missing, false, Standard},
		{"missing resume with pretrain", missing, true, Pretrain},
	}
	for _, tc := range cases {
		if got := Classify(tc.resumePath, tc.pretrain); got != tc.want {
			t.Fatalf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestApplyFreezingPerRegime(t *testing.T) {
	t.Parallel()

	log := logger.Default()
	cases := []struct {
		regime     Regime
		wantFrozen bool
	}{
		{Standard, true},
		{Pretrain, true},
		{FineTune, false},
	}
	for _, tc := range cases {
		m := testModel(t)
		resumePath := ""
		if tc.regime == FineTune {
			resumePath = saveCheckpointFile(t, testModel(t))
		}
		Apply(m, tc.regime, resumePath, log)
		for _, p := range m.EncoderParameters() {
			if p.Frozen != tc.wantFrozen {
				t.Fatalf("%v: encoder param %s frozen=%v, want %v",
					tc.regime, p.Name, p.Frozen, tc.wantFrozen)
			}
		}
		for _, p := range m.Parameters() {
			if p.Frozen && p.Name[:8] != "encoder." {
				t.Fatalf("%v: non-encoder param %s frozen", tc.regime, p.Name)
			}
		}
	}
}

func TestApplyLoadsResumeCheckpoint(t *testing.T) {
	t.Parallel()

	src := testModel(t)
	// shift a known weight so the load is observable
	src.Parameters()[0].Data.Data[0] = 7.5
	path := saveCheckpointFile(t, src)

	dst := testModel(t)
	outcome := Apply(dst, FineTune, path, logger.Default())
	if !outcome.Attempted || outcome.Err != nil {
		t.Fatalf("load outcome: %+v", outcome)
	}
	if dst.Parameters()[0].Data.Data[0] != 7.5 {
		t.Fatalf("checkpoint not applied: %v", dst.Parameters()[0].Data.Data[0])
	}
}

func TestApplySurfacesCorruptCheckpoint(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.ckpt")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := testModel(t)
	outcome := Apply(m, FineTune, path, logger.Default())
	if !outcome.Attempted {
		t.Fatalf("load not attempted for existing path")
	}
	if outcome.Err == nil {
		t.Fatalf("corrupt checkpoint produced no error")
	}
}

func TestMissingResumeMatchesNoResume(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "gone.ckpt")
	log := logger.Default()

	a := testModel(t)
	Apply(a, Classify("", false), "", log)
	b := testModel(t)
	Apply(b, Classify(missing, false), missing, log)

	pa, pb := a.Parameters(), b.Parameters()
	for i := range pa {
		if pa[i].Frozen != pb[i].Frozen {
			t.Fatalf("freeze state differs for %s", pa[i].Name)
		}
		for j := range pa[i].Data.Data {
			if pa[i].Data.Data[j] != pb[i].Data.Data[j] {
				t.Fatalf("initial parameters differ at %s[%d]", pa[i].Name, j)
			}
		}
	}
}
