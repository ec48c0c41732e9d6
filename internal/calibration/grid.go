package calibration

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Default grid bounds: 0.01 to 0.99 inclusive, step 0.01.
const (
	DefaultGridStart = 0.01
	DefaultGridStop  = 0.99
	DefaultGridStep  = 0.01
)

// MaxGridPoints bounds the size of a grid built by Grid.
const MaxGridPoints = 100001

// DefaultGrid returns the 99-point reference grid.
func DefaultGrid() []float64 {
	grid := make([]float64, 0, 99)
	for i := 1; i <= 99; i++ {
		grid = append(grid, float64(i)/100)
	}
	return grid
}

// Grid builds an inclusive ascending grid from start to stop. Points are
// computed as start + i*step and rounded to 10 decimals so repeated float
// addition cannot push the last point past stop.
func Grid(start, stop, step float64) ([]float64, error) {
	if !(step > 0) {
		return nil, eris.Wrapf(domain.ErrInvalidInput, "calibration: grid step must be > 0 (got %v)", step)
	}
	if math.IsNaN(start) || math.IsNaN(stop) || start < 0 || stop > 1 || start > stop {
		return nil, eris.Wrapf(domain.ErrInvalidInput,
			"calibration: grid bounds must satisfy 0 <= start <= stop <= 1 (got %v..%v)", start, stop)
	}

	count := math.Floor((stop-start)/step+1e-9) + 1
	if count > MaxGridPoints {
		return nil, eris.Wrapf(domain.ErrInvalidInput,
			"calibration: grid step %v yields more than %d points", step, MaxGridPoints)
	}
	n := int(count)
	grid := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		grid = append(grid, round10(start+float64(i)*step))
	}
	return grid, nil
}

// ValidateGrid requires a non-empty, strictly increasing grid inside [0,1].
func ValidateGrid(grid []float64) error {
	if len(grid) == 0 {
		return eris.Wrap(domain.ErrInvalidInput, "calibration: grid must not be empty")
	}
	for i, t := range grid {
		if math.IsNaN(t) || t < 0 || t > 1 {
			return eris.Wrapf(domain.ErrInvalidInput, "calibration: grid[%d]=%v outside [0,1]", i, t)
		}
		if i > 0 && !(t > grid[i-1]) {
			return eris.Wrapf(domain.ErrInvalidInput,
				"calibration: grid must be strictly increasing (grid[%d]=%v after %v)", i, t, grid[i-1])
		}
	}
	return nil
}

func round10(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}
