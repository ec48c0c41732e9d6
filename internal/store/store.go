// Package store persists calibration runs so an operator can audit which
// validation data produced a deployed threshold.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

var (
	// ErrNotFound is returned when a run ID does not exist.
	ErrNotFound = eris.New("calibration run not found")
	// ErrDuplicateRun is returned when a run ID is saved twice.
	ErrDuplicateRun = eris.New("calibration run already exists")
)

// DefaultListLimit caps ListRuns when the caller passes limit <= 0.
const DefaultListLimit = 100

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store defines the persistence interface for calibration runs.
type Store interface {
	SaveRun(ctx context.Context, run *domain.CalibrationRun) error
	GetRun(ctx context.Context, id string) (*domain.CalibrationRun, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.CalibrationRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a migrated store for the given driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverMemory, "":
		st = NewMemory()
	case DriverSQLite:
		st, err = NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
