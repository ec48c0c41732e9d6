package modelpkg_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/scorer"
)

const validYAML = `version: v1
created_at: 2024-05-01T10:00:00Z
scorer:
  kind: logistic
  bias: -1
  weights:
    Time_Diff: 0.5
features: [Amount_Log, Time_Diff, Hour]
threshold: 0.3
cost:
  cost_false_positive: 10
  cost_false_negative: 1000
latent_means:
  V1: 0.25
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validPackage() *modelpkg.Package {
	return &modelpkg.Package{
		Version:   "v2",
		CreatedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Scorer: scorer.Ref{
			Kind:    scorer.KindLogistic,
			Weights: map[string]float64{"Hour": 0.1},
		},
		Features:  []string{"Amount_Log", "Time_Diff", "Hour"},
		Threshold: 0.42,
		Cost:      domain.DefaultCostModel(),
		Calibration: &modelpkg.Provenance{
			RunID:        "run-1",
			Samples:      100,
			Positives:    3,
			TotalCost:    1020,
			CalibratedAt: time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC),
		},
	}
}

func TestLoad_Valid(t *testing.T) {
	pkg, err := modelpkg.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "v1", pkg.Version)
	assert.Equal(t, 0.3, pkg.Threshold)
	assert.Equal(t, []string{"Amount_Log", "Time_Diff", "Hour"}, pkg.Features)
	assert.Equal(t, domain.DefaultCostModel(), pkg.Cost)
	assert.Equal(t, scorer.KindLogistic, pkg.Scorer.Kind)
	assert.Equal(t, 0.25, pkg.LatentMeans["V1"])
}

func TestLoad_Rejects(t *testing.T) {
	base := func(replace ...string) string {
		out := validYAML
		for i := 0; i+1 < len(replace); i += 2 {
			out = strings.Replace(out, replace[i], replace[i+1], 1)
		}
		return out
	}

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", validYAML + "extra: true\n"},
		{"missing version", base("version: v1\n", "")},
		{"threshold zero", base("threshold: 0.3", "threshold: 0")},
		{"threshold one", base("threshold: 0.3", "threshold: 1")},
		{"negative cost", base("cost_false_positive: 10", "cost_false_positive: -10")},
		{"duplicate features", base("[Amount_Log, Time_Diff, Hour]", "[Hour, Time_Diff, Hour]")},
		{"empty features", base("[Amount_Log, Time_Diff, Hour]", "[]")},
		{"unknown feature", base("[Amount_Log, Time_Diff, Hour]", "[Amount_Log, Time_Diff, Merchant]")},
		{"non finite mean", base("V1: 0.25", "V1: .nan")},
		{"mean for unknown feature", base("V1: 0.25", "Merchant: 1")},
		{"weight outside features", base("Time_Diff: 0.5", "V3: 0.5")},
		{"unknown scorer kind", base("kind: logistic", "kind: onnx")},
		{"non finite bias", base("bias: -1", "bias: .nan")},
		{"infinite weight", base("Time_Diff: 0.5", "Time_Diff: .inf")},
		{"not yaml", "::: not yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := modelpkg.Load(writeFile(t, tt.content))
			assert.Nil(t, pkg)
			var le *modelpkg.LoadError
			require.True(t, errors.As(err, &le), "want *LoadError, got %v", err)
			assert.NotEmpty(t, le.Path)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := modelpkg.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var le *modelpkg.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.yaml")
	want := validPackage()

	require.NoError(t, modelpkg.Save(want, path))
	got, err := modelpkg.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSave_InvalidLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	pkg := validPackage()
	pkg.Threshold = 1.5

	err := modelpkg.Save(pkg, path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_Scores(t *testing.T) {
	active, err := modelpkg.Open(writeFile(t, validYAML), nil)
	require.NoError(t, err)

	// z = -1 + 0.5*2 = 0
	p, err := active.Score(context.Background(), domain.Attributes{Amount: 10, TimeDiff: 2, Hour: 3}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	v := active.Vector(domain.Attributes{Amount: 10, TimeDiff: 2, Hour: 3}, false)
	v1, ok := v.Get("V1")
	require.True(t, ok)
	assert.Equal(t, 0.25, v1)
}

func TestOpen_TrainingOrderPackage(t *testing.T) {
	pkg := validPackage()
	pkg.Features = features.TrainingNames()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, modelpkg.Save(pkg, path))

	active, err := modelpkg.Open(path, nil)
	require.NoError(t, err)
	p, err := active.Score(context.Background(), domain.Attributes{Amount: 100, TimeDiff: 20, Hour: 0}, true)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(p))
	assert.InDelta(t, 1/(1+math.Exp(0)), p, 1e-12, "Hour is 0 so z is 0")
}

func TestHolder_SwapAndReload(t *testing.T) {
	first, err := modelpkg.Open(writeFile(t, validYAML), nil)
	require.NoError(t, err)
	h := modelpkg.NewHolder(first)
	assert.Same(t, first, h.Current())

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, modelpkg.Save(validPackage(), path))
	next, err := h.Reload(path, nil)
	require.NoError(t, err)
	assert.Same(t, next, h.Current())
	assert.Equal(t, "v2", h.Current().Package.Version)

	_, err = h.Reload(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
	assert.Same(t, next, h.Current(), "failed reload keeps the current package")

	old := h.Swap(first)
	assert.Same(t, next, old)
}

func TestHolder_ConcurrentReaders(t *testing.T) {
	a, err := modelpkg.Open(writeFile(t, validYAML), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, modelpkg.Save(validPackage(), path))
	b, err := modelpkg.Open(path, nil)
	require.NoError(t, err)

	h := modelpkg.NewHolder(a)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if i%2 == 0 {
					if j%2 == 0 {
						h.Swap(a)
					} else {
						h.Swap(b)
					}
					continue
				}
				cur := h.Current()
				// a package is always observed whole
				switch cur.Package.Version {
				case "v1":
					assert.Equal(t, 0.3, cur.Package.Threshold)
				case "v2":
					assert.Equal(t, 0.42, cur.Package.Threshold)
				default:
					t.Errorf("unexpected version %q", cur.Package.Version)
				}
			}
		}(i)
	}
	wg.Wait()
}
