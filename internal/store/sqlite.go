package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// created_at holds unix nanoseconds so ordering is exact.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS calibration_runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL DEFAULT '',
	threshold  REAL NOT NULL,
	total_cost REAL NOT NULL,
	samples    INTEGER NOT NULL,
	positives  INTEGER NOT NULL,
	result     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calibration_runs_created_at ON calibration_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.CalibrationRun) error {
	if run == nil || run.ID == "" {
		return eris.Wrap(domain.ErrInvalidInput, "sqlite: run id is required")
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO calibration_runs (id, source, threshold, total_cost, samples, positives, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		run.ID, run.Source, run.Result.Threshold, run.Result.TotalCost,
		run.Result.Samples, run.Result.Positives, string(resultJSON), run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrDuplicateRun, "sqlite: insert run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.CalibrationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, result, created_at FROM calibration_runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.CalibrationRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, result, created_at FROM calibration_runs
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	runs := []domain.CalibrationRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*domain.CalibrationRun, error) {
	var (
		r          domain.CalibrationRun
		resultJSON string
		createdAt  int64
	)
	if err := row.Scan(&r.ID, &r.Source, &resultJSON, &createdAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	return &r, nil
}
