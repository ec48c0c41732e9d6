// Package domain contains all core types used across the application.
// Keeping domain types in one place makes the decision policy easy to reason about.
package domain

import (
	"time"

	"github.com/rotisserie/eris"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

// ErrInvalidInput is returned when calibration or decision input violates its
// contract. It is always returned before any computation happens.
var ErrInvalidInput = eris.New("invalid input")

// ─── Decisions ───────────────────────────────────────────────────────────────

// Decision is the terminal output of the policy engine.
type Decision string

// Decisions ordered by severity.
const (
	DecisionAllow     Decision = "ALLOW"     // let the transaction through
	DecisionChallenge Decision = "CHALLENGE" // ask for additional verification
	DecisionBlock     Decision = "BLOCK"     // reject the transaction
)

// Severity ranks a decision: ALLOW < CHALLENGE < BLOCK. Unknown values rank -1.
func (d Decision) Severity() int {
	switch d {
	case DecisionAllow:
		return 0
	case DecisionChallenge:
		return 1
	case DecisionBlock:
		return 2
	}
	return -1
}

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	return d.Severity() >= 0
}

// Risk flag identifiers, used as factor names in explanations.
const (
	FlagHighAmount       = "high_amount"
	FlagMediumAmount     = "medium_amount"
	FlagFastTransaction  = "fast_transaction"
	FlagNightTransaction = "night_transaction"
	FlagHighModelRisk    = "high_model_risk"
)

// ─── Cost model ──────────────────────────────────────────────────────────────

// Default monetary penalties, in the same currency unit as Amount.
const (
	DefaultCostFalsePositive = 10.0
	DefaultCostFalseNegative = 1000.0
)

// CostModel is the monetary penalty per false positive and per false negative.
type CostModel struct {
	FalsePositive float64 `json:"cost_false_positive" yaml:"cost_false_positive"`
	FalseNegative float64 `json:"cost_false_negative" yaml:"cost_false_negative"`
}

// DefaultCostModel returns the reference cost model (10 / 1000).
func DefaultCostModel() CostModel {
	return CostModel{
		FalsePositive: DefaultCostFalsePositive,
		FalseNegative: DefaultCostFalseNegative,
	}
}

// Validate requires both costs to be positive.
func (c CostModel) Validate() error {
	if !(c.FalsePositive > 0) {
		return eris.Wrapf(ErrInvalidInput, "cost_false_positive must be > 0 (got %v)", c.FalsePositive)
	}
	if !(c.FalseNegative > 0) {
		return eris.Wrapf(ErrInvalidInput, "cost_false_negative must be > 0 (got %v)", c.FalseNegative)
	}
	return nil
}

// Cost returns fp*FalsePositive + fn*FalseNegative.
func (c CostModel) Cost(fp, fn int) float64 {
	return float64(fp)*c.FalsePositive + float64(fn)*c.FalseNegative
}

// ─── Calibration ─────────────────────────────────────────────────────────────

// CurvePoint holds the confusion counts and cost at one grid threshold.
type CurvePoint struct {
	Threshold      float64 `json:"threshold"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
	Cost           float64 `json:"cost"`
}

// CalibrationResult is the output of a threshold calibration run.
// Curve is ordered exactly like the grid it was computed from.
type CalibrationResult struct {
	Threshold float64      `json:"threshold"`
	TotalCost float64      `json:"total_cost"`
	BestIndex int          `json:"best_index"`
	Samples   int          `json:"samples"`
	Positives int          `json:"positives"`
	CostModel CostModel    `json:"cost_model"`
	Curve     []CurvePoint `json:"curve"`
}

// Best returns the winning curve point.
func (r CalibrationResult) Best() CurvePoint {
	return r.Curve[r.BestIndex]
}

// CalibrationRun is a persisted calibration result.
type CalibrationRun struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"` // "api", "cli", ...
	CreatedAt time.Time         `json:"created_at"`
	Result    CalibrationResult `json:"result"`
}

// ─── Policy ──────────────────────────────────────────────────────────────────

// Attributes are the observable transaction attributes for one decision.
type Attributes struct {
	Amount   float64 `json:"amount"`    // currency units, > 0
	TimeDiff float64 `json:"time_diff"` // seconds since the previous transaction, >= 0
	Hour     int     `json:"hour"`      // 0-23
}

// RiskFlags are the named booleans derived from attributes and the model score.
// MediumAmount is surfaced in explanations but never counted in the risk score.
type RiskFlags struct {
	HighAmount       bool `json:"high_amount"`
	MediumAmount     bool `json:"medium_amount"`
	FastTransaction  bool `json:"fast_transaction"`
	NightTransaction bool `json:"night_transaction"`
	HighModelRisk    bool `json:"high_model_risk"`
}

// RiskFactor is a single flag that contributed to the explanation.
// ScoreDelta is 0 for descriptive-only factors (medium amount).
type RiskFactor struct {
	Name        string `json:"name"`        // machine-readable identifier
	Description string `json:"description"` // human-readable explanation
	ScoreDelta  int    `json:"score_delta"` // points added to the risk score
}

// Assessment is the full output of one policy evaluation.
type Assessment struct {
	Flags       RiskFlags    `json:"flags"`
	IsNight     bool         `json:"is_night"`
	RiskScore   int          `json:"risk_score"` // 0-4
	Decision    Decision     `json:"decision"`
	Factors     []RiskFactor `json:"factors"`
	Explanation []string     `json:"explanation"`
	Summary     string       `json:"summary"`
}

// DecisionRecord is an Assessment enriched with request context.
// This is the canonical record returned by the API and sent to alert webhooks.
type DecisionRecord struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Attributes    Attributes `json:"attributes"`
	Probability   float64    `json:"probability"`
	Scored        bool       `json:"scored"` // probability came from the package scorer
	Threshold     float64    `json:"threshold"`
	ModelVersion  string     `json:"model_version"`
	Assessment
	ProcessedAt time.Time `json:"processed_at"`
}

// ─── Alerts ──────────────────────────────────────────────────────────────────

// AlertPayload is the body sent to alert webhook URLs.
type AlertPayload struct {
	Event       string         `json:"event"` // always "high_risk_decision"
	TriggeredAt time.Time      `json:"triggered_at"`
	Decision    DecisionRecord `json:"decision"`
}
