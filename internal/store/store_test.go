package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newRun(id string, createdAt time.Time) *domain.CalibrationRun {
	return &domain.CalibrationRun{
		ID:        id,
		Source:    "test",
		CreatedAt: createdAt,
		Result: domain.CalibrationResult{
			Threshold: 0.3,
			TotalCost: 0,
			BestIndex: 1,
			Samples:   4,
			Positives: 2,
			CostModel: domain.DefaultCostModel(),
			Curve: []domain.CurvePoint{
				{Threshold: 0.1, TruePositives: 2, FalsePositives: 2, Cost: 20},
				{Threshold: 0.3, TruePositives: 2, TrueNegatives: 2},
			},
		},
	}
}

func newTestSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(context.Background(), store.DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

// ─── SaveRun / GetRun ─────────────────────────────────────────────────────────

func TestSaveRun_And_GetRun(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		want := newRun("run-001", base)
		require.NoError(t, st.SaveRun(ctx, want))

		got, err := st.GetRun(ctx, "run-001")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Source, got.Source)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, want.Result, got.Result)
	})
}

func TestSaveRun_Duplicate(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		require.NoError(t, st.SaveRun(ctx, newRun("dup", base)))
		err := st.SaveRun(ctx, newRun("dup", base.Add(time.Minute)))
		assert.ErrorIs(t, err, store.ErrDuplicateRun)
	})
}

func TestSaveRun_RequiresID(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		err := st.SaveRun(context.Background(), newRun("", base))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestGetRun_Missing(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		_, err := st.GetRun(context.Background(), "nonexistent")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	run := newRun("run-copy", base)
	require.NoError(t, st.SaveRun(ctx, run))

	run.Result.Curve[0].Cost = 999
	got, err := st.GetRun(ctx, "run-copy")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Result.Curve[0].Cost)

	got.Result.Curve[0].Cost = 555
	again, err := st.GetRun(ctx, "run-copy")
	require.NoError(t, err)
	assert.Equal(t, 20.0, again.Result.Curve[0].Cost)
}

// ─── ListRuns ─────────────────────────────────────────────────────────────────

func TestListRuns_NewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		require.NoError(t, st.SaveRun(ctx, newRun("old", base.Add(-2*time.Hour))))
		require.NoError(t, st.SaveRun(ctx, newRun("new", base)))
		require.NoError(t, st.SaveRun(ctx, newRun("mid", base.Add(-time.Hour))))

		runs, err := st.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "new", runs[0].ID)
		assert.Equal(t, "mid", runs[1].ID)
		assert.Equal(t, "old", runs[2].ID)
	})
}

func TestListRuns_SameTimestampLaterInsertFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		require.NoError(t, st.SaveRun(ctx, newRun("a", base)))
		require.NoError(t, st.SaveRun(ctx, newRun("b", base)))

		runs, err := st.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "b", runs[0].ID)
	})
}

func TestListRuns_Limit(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, st.SaveRun(ctx, newRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
		}

		runs, err := st.ListRuns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-4", runs[0].ID)
		assert.Equal(t, "run-3", runs[1].ID)
	})
}

func TestListRuns_Empty(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		runs, err := st.ListRuns(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

// ─── Concurrency ─────────────────────────────────────────────────────────────

func TestMemory_ConcurrentWrites(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = st.SaveRun(ctx, newRun(fmt.Sprintf("c-%d", i), base))
			_, _ = st.ListRuns(ctx, 5)
		}(i)
	}
	wg.Wait()

	runs, err := st.ListRuns(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, runs, 50)
}

// ─── Open ─────────────────────────────────────────────────────────────────────

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(ctx, store.DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)

	st, err = store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = store.Open(ctx, "postgres", "")
	assert.Error(t, err)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	st, err := store.Open(ctx, store.DriverSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, st.SaveRun(ctx, newRun("persisted", base)))
	require.NoError(t, st.Close())

	st, err = store.Open(ctx, store.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	got, err := st.GetRun(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Result.Threshold)
	assert.Len(t, got.Result.Curve, 2)
}
