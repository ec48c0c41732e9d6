// Package scorer is the boundary to the external fraud-probability oracle.
//
// The decision policy never computes a probability itself. A model package
// carries a Ref describing how to obtain one: either a remote model server
// reached over HTTP, or embedded logistic coefficients for self-contained
// deployments.
package scorer

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Scorer returns P(fraud) for a feature row already aligned to the model's
// feature order.
type Scorer interface {
	Score(ctx context.Context, row []float64) (float64, error)
}

// Supported scorer kinds.
const (
	KindHTTP     = "http"
	KindLogistic = "logistic"
)

const defaultTimeout = 5 * time.Second

// Ref is the scorer capability reference persisted in a model package.
type Ref struct {
	Kind string `json:"kind" yaml:"kind"`

	// http
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	TimeoutSecs int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty"`

	// logistic
	Bias    float64            `json:"bias,omitempty" yaml:"bias,omitempty"`
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Validate checks the reference against the package feature order.
func (r Ref) Validate(features []string) error {
	switch r.Kind {
	case KindHTTP:
		if r.Endpoint == "" {
			return eris.Wrap(domain.ErrInvalidInput, "scorer: http scorer needs an endpoint")
		}
		if r.TimeoutSecs < 0 {
			return eris.Wrapf(domain.ErrInvalidInput, "scorer: timeout_secs must be >= 0 (got %d)", r.TimeoutSecs)
		}
	case KindLogistic:
		if len(r.Weights) == 0 {
			return eris.Wrap(domain.ErrInvalidInput, "scorer: logistic scorer needs weights")
		}
		if !finite(r.Bias) {
			return eris.Wrapf(domain.ErrInvalidInput, "scorer: logistic bias must be finite (got %v)", r.Bias)
		}
		known := make(map[string]bool, len(features))
		for _, f := range features {
			known[f] = true
		}
		for name := range r.Weights {
			if !known[name] {
				return eris.Wrapf(domain.ErrInvalidInput, "scorer: weight for %q which is not a package feature", name)
			}
			if !finite(r.Weights[name]) {
				return eris.Wrapf(domain.ErrInvalidInput, "scorer: weight %q must be finite (got %v)", name, r.Weights[name])
			}
		}
	default:
		return eris.Wrapf(domain.ErrInvalidInput, "scorer: unknown kind %q", r.Kind)
	}
	return nil
}

// New builds a Scorer from a reference. client is used by the http kind; nil
// gets a client with the reference timeout.
func New(ref Ref, features []string, client *http.Client) (Scorer, error) {
	if err := ref.Validate(features); err != nil {
		return nil, err
	}

	switch ref.Kind {
	case KindHTTP:
		if client == nil {
			timeout := defaultTimeout
			if ref.TimeoutSecs > 0 {
				timeout = time.Duration(ref.TimeoutSecs) * time.Second
			}
			client = &http.Client{Timeout: timeout}
		}
		return &HTTPScorer{endpoint: ref.Endpoint, features: append([]string(nil), features...), client: client}, nil
	default:
		return newLogistic(ref, features), nil
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
