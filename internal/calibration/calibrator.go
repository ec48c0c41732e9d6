// Package calibration implements the offline cost-based threshold calibrator.
//
// A calibration sweeps an ordered grid of candidate thresholds over a labelled
// validation set, computes confusion counts at each threshold and picks the
// threshold with the lowest monetary cost. Ties go to the lowest threshold.
//
// The sweep only sums and compares; it never divides, so grid values of 0 and
// 1 are handled like any other.
package calibration

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Calibrator runs calibrations with the grid partitioned across Workers
// goroutines. A zero-value Calibrator uses runtime.NumCPU() workers.
type Calibrator struct {
	Workers int
}

// New creates a Calibrator with the given worker count.
func New(workers int) *Calibrator {
	return &Calibrator{Workers: workers}
}

// Calibrate is the sequential calibration. It returns the same result as
// (*Calibrator).Calibrate for any worker count.
func Calibrate(probabilities []float64, labels []int, cost domain.CostModel, grid []float64) (domain.CalibrationResult, error) {
	if err := validate(probabilities, labels, cost, grid); err != nil {
		return domain.CalibrationResult{}, err
	}

	curve := make([]domain.CurvePoint, len(grid))
	for i, t := range grid {
		curve[i] = evaluate(probabilities, labels, cost, t)
	}
	return reduce(curve, probabilities, labels, cost), nil
}

// Calibrate validates the input, sweeps the grid in parallel and reduces the
// curve in grid order. ctx only cancels the sweep; it has no effect on the
// result of a completed run.
func (c *Calibrator) Calibrate(ctx context.Context, probabilities []float64, labels []int, cost domain.CostModel, grid []float64) (domain.CalibrationResult, error) {
	if err := validate(probabilities, labels, cost, grid); err != nil {
		return domain.CalibrationResult{}, err
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(grid) {
		workers = len(grid)
	}

	// Each worker owns a contiguous block of grid indexes and writes only
	// into its own slots, so no locking is needed before the reduction.
	curve := make([]domain.CurvePoint, len(grid))
	chunk := (len(grid) + workers - 1) / workers

	g, gCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(grid); start += chunk {
		end := min(start+chunk, len(grid))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				curve[i] = evaluate(probabilities, labels, cost, grid[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CalibrationResult{}, eris.Wrap(err, "calibration: sweep")
	}

	return reduce(curve, probabilities, labels, cost), nil
}

// evaluate computes confusion counts and cost at threshold t.
// A sample is predicted positive iff p >= t.
func evaluate(probabilities []float64, labels []int, cost domain.CostModel, t float64) domain.CurvePoint {
	pt := domain.CurvePoint{Threshold: t}
	for i, p := range probabilities {
		predicted := p >= t
		actual := labels[i] == 1
		switch {
		case predicted && actual:
			pt.TruePositives++
		case predicted && !actual:
			pt.FalsePositives++
		case !predicted && actual:
			pt.FalseNegatives++
		default:
			pt.TrueNegatives++
		}
	}
	pt.Cost = cost.Cost(pt.FalsePositives, pt.FalseNegatives)
	return pt
}

// reduce picks the argmin of cost over the curve. Strict less-than keeps the
// first occurrence, which is the lowest threshold because the grid ascends.
func reduce(curve []domain.CurvePoint, probabilities []float64, labels []int, cost domain.CostModel) domain.CalibrationResult {
	best := 0
	for i := 1; i < len(curve); i++ {
		if curve[i].Cost < curve[best].Cost {
			best = i
		}
	}

	positives := 0
	for _, l := range labels {
		positives += l
	}

	return domain.CalibrationResult{
		Threshold: curve[best].Threshold,
		TotalCost: curve[best].Cost,
		BestIndex: best,
		Samples:   len(probabilities),
		Positives: positives,
		CostModel: cost,
		Curve:     curve,
	}
}

func validate(probabilities []float64, labels []int, cost domain.CostModel, grid []float64) error {
	if len(probabilities) == 0 {
		return eris.Wrap(domain.ErrInvalidInput, "calibration: probabilities must not be empty")
	}
	if len(probabilities) != len(labels) {
		return eris.Wrapf(domain.ErrInvalidInput,
			"calibration: %d probabilities but %d labels", len(probabilities), len(labels))
	}
	for i, p := range probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return eris.Wrapf(domain.ErrInvalidInput, "calibration: probability[%d]=%v outside [0,1]", i, p)
		}
	}
	for i, l := range labels {
		if l != 0 && l != 1 {
			return eris.Wrapf(domain.ErrInvalidInput, "calibration: label[%d]=%d not in {0,1}", i, l)
		}
	}
	if err := ValidateGrid(grid); err != nil {
		return err
	}
	if err := cost.Validate(); err != nil {
		return eris.Wrap(err, "calibration")
	}
	return nil
}
