package policy_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/policy"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func newEngine(t *testing.T) *policy.Engine {
	t.Helper()
	e, err := policy.New(policy.DefaultLimits())
	require.NoError(t, err)
	return e
}

// baseAttrs returns a clean, low-risk transaction.
func baseAttrs() domain.Attributes {
	return domain.Attributes{Amount: 500, TimeDiff: 300, Hour: 14}
}

func factorNames(factors []domain.RiskFactor) []string {
	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = f.Name
	}
	return names
}

// ─── Reference scenarios ──────────────────────────────────────────────────────

func TestEvaluate_AllClear_Allows(t *testing.T) {
	e := newEngine(t)

	a, err := e.Evaluate(baseAttrs(), 0.01, 0.05)
	require.NoError(t, err)

	assert.Equal(t, domain.RiskFlags{}, a.Flags)
	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, domain.DecisionAllow, a.Decision)
	assert.Empty(t, a.Explanation)
	assert.Empty(t, a.Factors)
	assert.Equal(t, policy.SummaryAllow, a.Summary)
}

func TestEvaluate_EveryFlag_Blocks(t *testing.T) {
	e := newEngine(t)

	a, err := e.Evaluate(domain.Attributes{Amount: 60000, TimeDiff: 5, Hour: 23}, 0.9, 0.05)
	require.NoError(t, err)

	assert.True(t, a.Flags.HighAmount)
	assert.True(t, a.Flags.MediumAmount)
	assert.True(t, a.Flags.FastTransaction)
	assert.True(t, a.Flags.NightTransaction)
	assert.True(t, a.Flags.HighModelRisk)
	assert.Equal(t, 4, a.RiskScore)
	assert.Equal(t, domain.DecisionBlock, a.Decision)
	assert.Equal(t, []string{
		policy.ReasonHighAmount,
		policy.ReasonFastTransaction,
		policy.ReasonNightTransaction,
		policy.ReasonHighModelRisk,
	}, a.Explanation)
	assert.NotContains(t, a.Explanation, policy.ReasonMediumAmount)
	assert.Equal(t, policy.SummaryBlock, a.Summary)
}

func TestEvaluate_MediumAmountExplainedButNotCounted(t *testing.T) {
	e := newEngine(t)

	a, err := e.Evaluate(domain.Attributes{Amount: 25000, TimeDiff: 300, Hour: 14}, 0.9, 0.05)
	require.NoError(t, err)

	assert.True(t, a.Flags.MediumAmount)
	assert.False(t, a.Flags.HighAmount)
	assert.True(t, a.Flags.HighModelRisk)
	assert.Equal(t, 1, a.RiskScore)
	assert.Equal(t, domain.DecisionAllow, a.Decision)
	assert.Equal(t, []string{policy.ReasonMediumAmount, policy.ReasonHighModelRisk}, a.Explanation)
	assert.Equal(t, 0, a.Factors[0].ScoreDelta)
}

func TestEvaluate_TwoFlags_Challenges(t *testing.T) {
	e := newEngine(t)

	attrs := baseAttrs()
	attrs.TimeDiff = 10 // inclusive boundary
	a, err := e.Evaluate(attrs, 0.05, 0.05)
	require.NoError(t, err)

	assert.Equal(t, 2, a.RiskScore)
	assert.Equal(t, domain.DecisionChallenge, a.Decision)
	assert.Equal(t, []string{domain.FlagFastTransaction, domain.FlagHighModelRisk}, factorNames(a.Factors))
	assert.Equal(t, policy.SummaryChallenge, a.Summary)
}

// ─── Flags ────────────────────────────────────────────────────────────────────

func TestFlags_AmountBoundaries(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		amount       float64
		high, medium bool
	}{
		{19999.99, false, false},
		{20000, false, true},
		{49999.99, false, true},
		{50000, true, true},
		{200000, true, true},
	}
	for _, tt := range tests {
		attrs := baseAttrs()
		attrs.Amount = tt.amount
		f := e.Flags(attrs, 0, 0.5)
		assert.Equal(t, tt.high, f.HighAmount, "high at %v", tt.amount)
		assert.Equal(t, tt.medium, f.MediumAmount, "medium at %v", tt.amount)
	}
}

func TestFlags_NightWindow(t *testing.T) {
	e := newEngine(t)
	for hour := 0; hour < 24; hour++ {
		attrs := baseAttrs()
		attrs.Hour = hour
		want := hour >= 22 || hour < 6
		assert.Equal(t, want, e.Flags(attrs, 0, 0.5).NightTransaction, "hour %d", hour)
	}
}

func TestFlags_ModelRiskInclusive(t *testing.T) {
	e := newEngine(t)
	assert.True(t, e.Flags(baseAttrs(), 0.3, 0.3).HighModelRisk)
	assert.False(t, e.Flags(baseAttrs(), 0.2999, 0.3).HighModelRisk)
}

func TestFlags_FastTransactionBoundary(t *testing.T) {
	e := newEngine(t)
	attrs := baseAttrs()

	attrs.TimeDiff = 10
	assert.True(t, e.Flags(attrs, 0, 0.5).FastTransaction)
	attrs.TimeDiff = 10.5
	assert.False(t, e.Flags(attrs, 0, 0.5).FastTransaction)
	attrs.TimeDiff = 0
	assert.True(t, e.Flags(attrs, 0, 0.5).FastTransaction)
}

// ─── Score & decision ─────────────────────────────────────────────────────────

func TestScore_RangeAndMediumExcluded(t *testing.T) {
	// Exhaust all 32 flag combinations.
	for mask := 0; mask < 32; mask++ {
		f := domain.RiskFlags{
			HighAmount:       mask&1 != 0,
			MediumAmount:     mask&2 != 0,
			FastTransaction:  mask&4 != 0,
			NightTransaction: mask&8 != 0,
			HighModelRisk:    mask&16 != 0,
		}
		score := policy.Score(f)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 4)

		withoutMedium := f
		withoutMedium.MediumAmount = !f.MediumAmount
		assert.Equal(t, score, policy.Score(withoutMedium), "medium amount must not change the score")
	}
}

func TestDecide_Cutoffs(t *testing.T) {
	e := newEngine(t)
	want := map[int]domain.Decision{
		0: domain.DecisionAllow,
		1: domain.DecisionAllow,
		2: domain.DecisionChallenge,
		3: domain.DecisionBlock,
		4: domain.DecisionBlock,
	}
	for score, d := range want {
		assert.Equal(t, d, e.Decide(score), "score %d", score)
	}
}

func TestScore_MonotoneInAmount(t *testing.T) {
	e := newEngine(t)
	amounts := []float64{1, 500, 19999, 20000, 35000, 49999, 50000, 75000, 200000}

	for _, hour := range []int{3, 14} {
		for _, td := range []float64{5, 300} {
			for _, p := range []float64{0.01, 0.9} {
				prev := -1
				for _, amt := range amounts {
					a, err := e.Evaluate(domain.Attributes{Amount: amt, TimeDiff: td, Hour: hour}, p, 0.05)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, a.RiskScore, prev, "amount %v hour %d td %v p %v", amt, hour, td, p)
					prev = a.RiskScore
				}
			}
		}
	}
}

// ─── Input contract ───────────────────────────────────────────────────────────

func TestEvaluate_RejectsOutOfContractInput(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		name        string
		attrs       domain.Attributes
		probability float64
		threshold   float64
	}{
		{"zero amount", domain.Attributes{Amount: 0, TimeDiff: 1, Hour: 1}, 0.5, 0.5},
		{"negative time diff", domain.Attributes{Amount: 1, TimeDiff: -1, Hour: 1}, 0.5, 0.5},
		{"hour 24", domain.Attributes{Amount: 1, TimeDiff: 1, Hour: 24}, 0.5, 0.5},
		{"negative hour", domain.Attributes{Amount: 1, TimeDiff: 1, Hour: -1}, 0.5, 0.5},
		{"probability above one", baseAttrs(), 1.01, 0.5},
		{"negative probability", baseAttrs(), -0.01, 0.5},
		{"NaN probability", baseAttrs(), math.NaN(), 0.5},
		{"zero threshold", baseAttrs(), 0.5, 0},
		{"threshold one", baseAttrs(), 0.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(tt.attrs, tt.probability, tt.threshold)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestEvaluate_ProbabilityBoundsAccepted(t *testing.T) {
	e := newEngine(t)
	_, err := e.Evaluate(baseAttrs(), 0, 0.5)
	assert.NoError(t, err)
	_, err = e.Evaluate(baseAttrs(), 1, 0.5)
	assert.NoError(t, err)
}

// ─── Determinism & concurrency ────────────────────────────────────────────────

func TestEvaluate_Deterministic(t *testing.T) {
	e := newEngine(t)
	attrs := domain.Attributes{Amount: 30000, TimeDiff: 3, Hour: 2}

	first, err := e.Evaluate(attrs, 0.4, 0.3)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.Evaluate(attrs, 0.4, 0.3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluate_ConcurrentCalls(t *testing.T) {
	e := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attrs := domain.Attributes{Amount: float64(1000 * (i + 1)), TimeDiff: float64(i), Hour: i % 24}
			a, err := e.Evaluate(attrs, 0.5, 0.3)
			assert.NoError(t, err)
			assert.True(t, a.Decision.Valid())
		}(i)
	}
	wg.Wait()
}

// ─── Limits ───────────────────────────────────────────────────────────────────

func TestCustomLimits(t *testing.T) {
	limits := policy.DefaultLimits()
	limits.HighAmount = 1000
	limits.MediumAmount = 500
	limits.NightStartHour = 1
	limits.NightEndHour = 5
	e, err := policy.New(limits)
	require.NoError(t, err)

	f := e.Flags(domain.Attributes{Amount: 1000, TimeDiff: 100, Hour: 23}, 0, 0.5)
	assert.True(t, f.HighAmount)
	assert.False(t, f.NightTransaction, "non-wrapping window 1-5 excludes 23")

	f = e.Flags(domain.Attributes{Amount: 600, TimeDiff: 100, Hour: 4}, 0, 0.5)
	assert.True(t, f.MediumAmount)
	assert.False(t, f.HighAmount)
	assert.True(t, f.NightTransaction)
}

func TestLimits_Validate(t *testing.T) {
	require.NoError(t, policy.DefaultLimits().Validate())

	bad := []func(*policy.Limits){
		func(l *policy.Limits) { l.HighAmount = 100; l.MediumAmount = 200 },
		func(l *policy.Limits) { l.MediumAmount = 0 },
		func(l *policy.Limits) { l.FastTransactionSeconds = -1 },
		func(l *policy.Limits) { l.NightStartHour = 24 },
		func(l *policy.Limits) { l.BlockScore = 2 },
		func(l *policy.Limits) { l.BlockScore = 5 },
		func(l *policy.Limits) { l.ChallengeScore = 0 },
		func(l *policy.Limits) { l.HighAmount = math.NaN() },
		func(l *policy.Limits) { l.HighAmount = math.Inf(1) },
		func(l *policy.Limits) { l.MediumAmount = math.Inf(1); l.HighAmount = math.Inf(1) },
		func(l *policy.Limits) { l.FastTransactionSeconds = math.NaN() },
	}
	for i, mutate := range bad {
		l := policy.DefaultLimits()
		mutate(&l)
		_, err := policy.New(l)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "case %d", i)
	}
}
