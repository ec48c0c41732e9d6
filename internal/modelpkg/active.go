package modelpkg

import (
	"context"
	"net/http"

	"go.uber.org/atomic"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/scorer"
)

// Active is a loaded package together with its constructed scorer.
// It must not be modified after Open returns it.
type Active struct {
	Package *Package
	Scorer  scorer.Scorer
	Path    string
}

// Open loads the package at path and builds its scorer.
func Open(path string, client *http.Client) (*Active, error) {
	pkg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s, err := scorer.New(pkg.Scorer, pkg.Features, client)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &Active{Package: pkg, Scorer: s, Path: path}, nil
}

// Vector builds the feature vector for attrs using the package latent means.
func (a *Active) Vector(attrs domain.Attributes, isNight bool) features.Vector {
	return features.Build(attrs, isNight, a.Package.LatentMeans)
}

// Score builds, aligns and scores the feature row for attrs.
func (a *Active) Score(ctx context.Context, attrs domain.Attributes, isNight bool) (float64, error) {
	row, err := a.Vector(attrs, isNight).Align(a.Package.Features)
	if err != nil {
		return 0, err
	}
	return a.Scorer.Score(ctx, row)
}

// ─── Holder ──────────────────────────────────────────────────────────────────

// Holder publishes the active package to concurrent readers. A swap is a
// single pointer store, so readers see either the old or the new package.
type Holder struct {
	current *atomic.Pointer[Active]
}

// NewHolder returns a holder serving active.
func NewHolder(active *Active) *Holder {
	return &Holder{current: atomic.NewPointer(active)}
}

// Current returns the package in effect.
func (h *Holder) Current() *Active {
	return h.current.Load()
}

// Swap installs next and returns the previous package.
func (h *Holder) Swap(next *Active) *Active {
	return h.current.Swap(next)
}

// Reload opens path and swaps it in. On failure the current package stays.
func (h *Holder) Reload(path string, client *http.Client) (*Active, error) {
	next, err := Open(path, client)
	if err != nil {
		return nil, err
	}
	h.Swap(next)
	return next, nil
}
