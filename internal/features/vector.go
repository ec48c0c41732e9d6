// Package features builds the model feature vector for a live transaction.
//
// Latent dimensions (V1..V28) only exist at training time. At inference they
// are filled with their training-set means, and the PCA aggregates are
// recomputed over those imputed values the same way the training pipeline
// computed them over real ones.
//
// Vectors are immutable values. Projection onto a model's feature order goes
// through Align, which fails loudly instead of misaligning columns.
package features

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// ErrFeatureMismatch is returned when a model's feature order cannot be
// satisfied by a vector.
var ErrFeatureMismatch = eris.New("feature mismatch")

// LatentCount is the number of latent (PCA) components.
const LatentCount = 28

// Feature names.
const (
	Amount     = "Amount"
	AmountLog  = "Amount_Log"
	TimeDiff   = "Time_Diff"
	Hour       = "Hour"
	IsNight    = "Is_Night"
	PCAAbsMean = "PCA_Abs_Mean"
	PCAPosSum  = "PCA_Pos_Sum"
	PCANegSum  = "PCA_Neg_Sum"
)

// LatentName returns the name of latent component i (1-based), e.g. "V7".
func LatentName(i int) string {
	return fmt.Sprintf("V%d", i)
}

// LatentNames returns V1..V28.
func LatentNames() []string {
	names := make([]string, LatentCount)
	for i := range names {
		names[i] = LatentName(i + 1)
	}
	return names
}

// IsLatent reports whether name is one of V1..V28.
func IsLatent(name string) bool {
	for i := 1; i <= LatentCount; i++ {
		if name == LatentName(i) {
			return true
		}
	}
	return false
}

// TrainingNames returns the feature order produced by the training pipeline:
// latent components first, then the engineered columns. Raw Amount is not a
// training feature.
func TrainingNames() []string {
	names := LatentNames()
	return append(names, AmountLog, TimeDiff, Hour, IsNight, PCAAbsMean, PCAPosSum, PCANegSum)
}

// Vector is an ordered, immutable feature record.
type Vector struct {
	names  []string
	values []float64
	index  map[string]int
}

// Build assembles the full feature vector for a transaction. Latent values
// missing from means are imputed as 0. isNight is supplied by the caller so the
// vector agrees with the policy's night window.
func Build(attrs domain.Attributes, isNight bool, means map[string]float64) Vector {
	names := make([]string, 0, 8+LatentCount)
	values := make([]float64, 0, 8+LatentCount)
	add := func(name string, v float64) {
		names = append(names, name)
		values = append(values, v)
	}

	night := 0.0
	if isNight {
		night = 1
	}
	add(Amount, attrs.Amount)
	add(AmountLog, math.Log1p(attrs.Amount))
	add(TimeDiff, attrs.TimeDiff)
	add(Hour, float64(attrs.Hour))
	add(IsNight, night)

	latent := make([]float64, LatentCount)
	for i := range latent {
		latent[i] = means[LatentName(i+1)]
		add(LatentName(i+1), latent[i])
	}

	absMean, pos, neg := aggregate(latent)
	add(PCAAbsMean, absMean)
	add(PCAPosSum, pos)
	add(PCANegSum, neg)

	return newVector(names, values)
}

func newVector(names []string, values []float64) Vector {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return Vector{names: names, values: values, index: index}
}

// aggregate returns mean(|v|), sum(v>0) and sum(v<0).
func aggregate(latent []float64) (absMean, pos, neg float64) {
	for _, v := range latent {
		absMean += math.Abs(v)
		switch {
		case v > 0:
			pos += v
		case v < 0:
			neg += v
		}
	}
	return absMean / float64(len(latent)), pos, neg
}

// Len returns the number of features.
func (v Vector) Len() int {
	return len(v.names)
}

// Names returns a copy of the feature names in vector order.
func (v Vector) Names() []string {
	return append([]string(nil), v.names...)
}

// Get returns the value of a named feature.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Align projects the vector onto order. Every name must exist in the vector
// and appear once; otherwise ErrFeatureMismatch is returned.
func (v Vector) Align(order []string) ([]float64, error) {
	if len(order) == 0 {
		return nil, eris.Wrap(ErrFeatureMismatch, "features: empty feature order")
	}
	seen := make(map[string]bool, len(order))
	row := make([]float64, len(order))
	for i, name := range order {
		if seen[name] {
			return nil, eris.Wrapf(ErrFeatureMismatch, "features: %q listed twice", name)
		}
		seen[name] = true

		j, ok := v.index[name]
		if !ok {
			return nil, eris.Wrapf(ErrFeatureMismatch, "features: %q is not produced at inference", name)
		}
		row[i] = v.values[j]
	}
	return row, nil
}

// Known reports whether a feature name can be produced by Build.
func Known(name string) bool {
	switch name {
	case Amount, AmountLog, TimeDiff, Hour, IsNight, PCAAbsMean, PCAPosSum, PCANegSum:
		return true
	}
	return IsLatent(name)
}
