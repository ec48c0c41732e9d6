package scorer

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Logistic scores with embedded coefficients: p = 1 / (1 + exp(-(bias + w·x))).
type Logistic struct {
	bias    float64
	weights []float64 // aligned to the package feature order
}

func newLogistic(ref Ref, features []string) *Logistic {
	w := make([]float64, len(features))
	for i, name := range features {
		w[i] = ref.Weights[name]
	}
	return &Logistic{bias: ref.Bias, weights: w}
}

// Score implements Scorer.
func (l *Logistic) Score(_ context.Context, row []float64) (float64, error) {
	if len(row) != len(l.weights) {
		return 0, eris.Wrapf(domain.ErrInvalidInput, "scorer: row has %d values, model expects %d", len(row), len(l.weights))
	}
	z := l.bias
	for i, x := range row {
		z += l.weights[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}
