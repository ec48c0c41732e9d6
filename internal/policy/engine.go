// Package policy implements the online risk-policy engine.
//
// The engine is stateless: every decision is a pure function of the
// transaction attributes, the model probability and the calibrated
// threshold. It keeps no memory of previous transactions and is safe to call
// concurrently.
//
// Flags:
//  1. High amount:   amount >= 50000 (counts)
//  2. Medium amount: amount >= 20000 (explanation only, never counts)
//  3. Fast:          seconds since previous transaction <= 10 (counts)
//  4. Night:         hour >= 22 or hour < 6 (counts)
//  5. Model risk:    probability >= threshold (counts)
//
// The risk score is the number of counting flags (0-4); score >= 3 blocks,
// score == 2 challenges, anything lower is allowed.
package policy

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// maxScore is the number of flags that count toward the risk score.
const maxScore = 4

// Reason texts, in explanation order.
const (
	ReasonHighAmount       = "Very high transaction amount"
	ReasonMediumAmount     = "Medium-high transaction amount"
	ReasonFastTransaction  = "Consecutive transaction within a very short time"
	ReasonNightTransaction = "Transaction made during night hours"
	ReasonHighModelRisk    = "Model reported a high fraud probability"
)

// Decision summaries.
const (
	SummaryBlock     = "Multiple high risk factors"
	SummaryChallenge = "Suspicious transaction, additional verification required"
	SummaryAllow     = "Normal transaction profile"
)

// Engine is the stateless risk-policy engine.
type Engine struct {
	limits Limits
}

// New creates an engine with the given limits. Use DefaultLimits for the
// reference policy.
func New(limits Limits) (*Engine, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Engine{limits: limits}, nil
}

// Limits returns the limits the engine was built with.
func (e *Engine) Limits() Limits {
	return e.limits
}

// ─── Public API ───────────────────────────────────────────────────────────────

// Evaluate computes flags, risk score, decision and explanation for one
// transaction. It fails only when an input is outside its contract; any
// in-range input yields a decision.
func (e *Engine) Evaluate(attrs domain.Attributes, probability, threshold float64) (domain.Assessment, error) {
	if err := ValidateInputs(attrs, probability, threshold); err != nil {
		return domain.Assessment{}, err
	}

	flags := e.Flags(attrs, probability, threshold)
	score := Score(flags)
	decision := e.Decide(score)
	factors := buildFactors(flags)

	explanation := make([]string, len(factors))
	for i, f := range factors {
		explanation[i] = f.Description
	}

	return domain.Assessment{
		Flags:       flags,
		IsNight:     flags.NightTransaction,
		RiskScore:   score,
		Decision:    decision,
		Factors:     factors,
		Explanation: explanation,
		Summary:     Summary(decision),
	}, nil
}

// Flags derives the five risk flags. Boundaries are inclusive as documented
// on Limits.
func (e *Engine) Flags(attrs domain.Attributes, probability, threshold float64) domain.RiskFlags {
	return domain.RiskFlags{
		HighAmount:       attrs.Amount >= e.limits.HighAmount,
		MediumAmount:     attrs.Amount >= e.limits.MediumAmount,
		FastTransaction:  attrs.TimeDiff <= e.limits.FastTransactionSeconds,
		NightTransaction: e.limits.IsNight(attrs.Hour),
		HighModelRisk:    probability >= threshold,
	}
}

// Score counts the scoring flags. MediumAmount is deliberately left out.
func Score(f domain.RiskFlags) int {
	score := 0
	for _, on := range []bool{f.HighAmount, f.FastTransaction, f.NightTransaction, f.HighModelRisk} {
		if on {
			score++
		}
	}
	return score
}

// Decide maps a risk score to a decision.
func (e *Engine) Decide(score int) domain.Decision {
	switch {
	case score >= e.limits.BlockScore:
		return domain.DecisionBlock
	case score >= e.limits.ChallengeScore:
		return domain.DecisionChallenge
	default:
		return domain.DecisionAllow
	}
}

// Summary returns the one-line description of a decision.
func Summary(d domain.Decision) string {
	switch d {
	case domain.DecisionBlock:
		return SummaryBlock
	case domain.DecisionChallenge:
		return SummaryChallenge
	default:
		return SummaryAllow
	}
}

// ValidateAttributes checks the observable transaction attributes.
func ValidateAttributes(attrs domain.Attributes) error {
	switch {
	case math.IsNaN(attrs.Amount) || math.IsInf(attrs.Amount, 0) || attrs.Amount <= 0:
		return eris.Wrapf(domain.ErrInvalidInput, "policy: amount must be > 0 (got %v)", attrs.Amount)
	case math.IsNaN(attrs.TimeDiff) || math.IsInf(attrs.TimeDiff, 0) || attrs.TimeDiff < 0:
		return eris.Wrapf(domain.ErrInvalidInput, "policy: time_diff must be >= 0 (got %v)", attrs.TimeDiff)
	case attrs.Hour < 0 || attrs.Hour > 23:
		return eris.Wrapf(domain.ErrInvalidInput, "policy: hour must be within 0-23 (got %d)", attrs.Hour)
	}
	return nil
}

// ValidateInputs rejects out-of-contract input. Nothing is clamped.
func ValidateInputs(attrs domain.Attributes, probability, threshold float64) error {
	if err := ValidateAttributes(attrs); err != nil {
		return err
	}
	switch {
	case math.IsNaN(probability) || probability < 0 || probability > 1:
		return eris.Wrapf(domain.ErrInvalidInput, "policy: probability must be within [0,1] (got %v)", probability)
	case math.IsNaN(threshold) || threshold <= 0 || threshold >= 1:
		return eris.Wrapf(domain.ErrInvalidInput, "policy: threshold must be within (0,1) (got %v)", threshold)
	}
	return nil
}

// ─── Explanation ──────────────────────────────────────────────────────────────

// buildFactors lists the raised flags in fixed order. The explanation is built
// from the flags alone, independently of the decision.
func buildFactors(f domain.RiskFlags) []domain.RiskFactor {
	factors := []domain.RiskFactor{}

	// High and medium amount are mutually exclusive; high is checked first.
	switch {
	case f.HighAmount:
		factors = append(factors, domain.RiskFactor{
			Name: domain.FlagHighAmount, Description: ReasonHighAmount, ScoreDelta: 1,
		})
	case f.MediumAmount:
		factors = append(factors, domain.RiskFactor{
			Name: domain.FlagMediumAmount, Description: ReasonMediumAmount, ScoreDelta: 0,
		})
	}

	if f.FastTransaction {
		factors = append(factors, domain.RiskFactor{
			Name: domain.FlagFastTransaction, Description: ReasonFastTransaction, ScoreDelta: 1,
		})
	}
	if f.NightTransaction {
		factors = append(factors, domain.RiskFactor{
			Name: domain.FlagNightTransaction, Description: ReasonNightTransaction, ScoreDelta: 1,
		})
	}
	if f.HighModelRisk {
		factors = append(factors, domain.RiskFactor{
			Name: domain.FlagHighModelRisk, Description: ReasonHighModelRisk, ScoreDelta: 1,
		})
	}

	return factors
}
