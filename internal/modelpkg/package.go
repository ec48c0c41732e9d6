// Package modelpkg loads, validates and persists the versioned model package
// the decision service runs with: scorer reference, feature order, calibrated
// threshold, cost model and the training means used for latent imputation.
package modelpkg

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/scorer"
)

// Package is the on-disk model package.
type Package struct {
	Version     string             `yaml:"version" json:"version"`
	CreatedAt   time.Time          `yaml:"created_at" json:"created_at"`
	Scorer      scorer.Ref         `yaml:"scorer" json:"scorer"`
	Features    []string           `yaml:"features" json:"features"`
	Threshold   float64            `yaml:"threshold" json:"threshold"`
	Cost        domain.CostModel   `yaml:"cost" json:"cost"`
	LatentMeans map[string]float64 `yaml:"latent_means,omitempty" json:"latent_means,omitempty"`
	Calibration *Provenance        `yaml:"calibration,omitempty" json:"calibration,omitempty"`
}

// Provenance records which calibration run produced the threshold.
type Provenance struct {
	RunID        string    `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Samples      int       `yaml:"samples" json:"samples"`
	Positives    int       `yaml:"positives" json:"positives"`
	TotalCost    float64   `yaml:"total_cost" json:"total_cost"`
	CalibratedAt time.Time `yaml:"calibrated_at" json:"calibrated_at"`
}

// LoadError is returned for any failure to read, decode or validate a package.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("modelpkg: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Validate checks the package contract.
func (p *Package) Validate() error {
	if p.Version == "" {
		return eris.Wrap(domain.ErrInvalidInput, "version is required")
	}
	if len(p.Features) == 0 {
		return eris.Wrap(domain.ErrInvalidInput, "features must not be empty")
	}
	seen := make(map[string]bool, len(p.Features))
	for _, name := range p.Features {
		if name == "" {
			return eris.Wrap(domain.ErrInvalidInput, "empty feature name")
		}
		if seen[name] {
			return eris.Wrapf(domain.ErrInvalidInput, "duplicate feature %q", name)
		}
		if !features.Known(name) {
			return eris.Wrapf(features.ErrFeatureMismatch, "feature %q is not produced by the feature builder", name)
		}
		seen[name] = true
	}
	if math.IsNaN(p.Threshold) || p.Threshold <= 0 || p.Threshold >= 1 {
		return eris.Wrapf(domain.ErrInvalidInput, "threshold must be in (0,1) (got %v)", p.Threshold)
	}
	if err := p.Cost.Validate(); err != nil {
		return err
	}
	for name, v := range p.LatentMeans {
		if !features.IsLatent(name) && !seen[name] {
			return eris.Wrapf(domain.ErrInvalidInput, "latent mean for unknown feature %q", name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrapf(domain.ErrInvalidInput, "latent mean %q is not finite", name)
		}
	}
	return p.Scorer.Validate(p.Features)
}

// Load reads and validates a package. No partial package is returned.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: eris.Wrap(err, "read")}
	}

	var pkg Package
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pkg); err != nil {
		return nil, &LoadError{Path: path, Err: eris.Wrap(err, "decode")}
	}
	if err := pkg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &pkg, nil
}

// Save validates pkg and writes it to path atomically.
func Save(pkg *Package, path string) error {
	if err := pkg.Validate(); err != nil {
		return eris.Wrap(err, "modelpkg: save")
	}

	data, err := yaml.Marshal(pkg)
	if err != nil {
		return eris.Wrap(err, "modelpkg: marshal")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "modelpkg: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.yaml")
	if err != nil {
		return eris.Wrap(err, "modelpkg: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "modelpkg: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "modelpkg: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "modelpkg: rename to %s", path)
	}
	return nil
}
