package policy

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Reference policy boundaries.
const (
	DefaultHighAmount             = 50000.0
	DefaultMediumAmount           = 20000.0
	DefaultFastTransactionSeconds = 10.0
	DefaultNightStartHour         = 22 // inclusive
	DefaultNightEndHour           = 6  // exclusive
	DefaultBlockScore             = 3
	DefaultChallengeScore         = 2
)

// Limits holds the numeric boundaries of the decision policy. They are policy
// constants, not learned values; tuning them needs no code change.
type Limits struct {
	// Amount at or above which the high-amount flag is raised (counts toward the score).
	HighAmount float64 `json:"high_amount" yaml:"high_amount" mapstructure:"high_amount"`
	// Amount at or above which the medium-amount flag is raised (explanation only).
	MediumAmount float64 `json:"medium_amount" yaml:"medium_amount" mapstructure:"medium_amount"`
	// Seconds since the previous transaction at or below which the transaction is fast.
	FastTransactionSeconds float64 `json:"fast_transaction_seconds" yaml:"fast_transaction_seconds" mapstructure:"fast_transaction_seconds"`
	// Night window [NightStartHour, NightEndHour), wrapping past midnight when start > end.
	NightStartHour int `json:"night_start_hour" yaml:"night_start_hour" mapstructure:"night_start_hour"`
	NightEndHour   int `json:"night_end_hour" yaml:"night_end_hour" mapstructure:"night_end_hour"`
	// Risk score cutoffs: score >= BlockScore blocks, score >= ChallengeScore challenges.
	BlockScore     int `json:"block_score" yaml:"block_score" mapstructure:"block_score"`
	ChallengeScore int `json:"challenge_score" yaml:"challenge_score" mapstructure:"challenge_score"`
}

// DefaultLimits returns the reference policy boundaries.
func DefaultLimits() Limits {
	return Limits{
		HighAmount:             DefaultHighAmount,
		MediumAmount:           DefaultMediumAmount,
		FastTransactionSeconds: DefaultFastTransactionSeconds,
		NightStartHour:         DefaultNightStartHour,
		NightEndHour:           DefaultNightEndHour,
		BlockScore:             DefaultBlockScore,
		ChallengeScore:         DefaultChallengeScore,
	}
}

// Validate checks that the limits are internally consistent.
func (l Limits) Validate() error {
	switch {
	case math.IsInf(l.HighAmount, 0) || math.IsNaN(l.HighAmount) ||
		math.IsInf(l.MediumAmount, 0) || math.IsNaN(l.MediumAmount) ||
		math.IsInf(l.FastTransactionSeconds, 0) || math.IsNaN(l.FastTransactionSeconds):
		return eris.Wrapf(domain.ErrInvalidInput,
			"policy: amount and seconds limits must be finite (got %v, %v, %v)",
			l.HighAmount, l.MediumAmount, l.FastTransactionSeconds)
	case !(l.MediumAmount > 0):
		return eris.Wrapf(domain.ErrInvalidInput, "policy: medium_amount must be > 0 (got %v)", l.MediumAmount)
	case l.HighAmount < l.MediumAmount:
		return eris.Wrapf(domain.ErrInvalidInput,
			"policy: high_amount (%v) must be >= medium_amount (%v)", l.HighAmount, l.MediumAmount)
	case l.FastTransactionSeconds < 0:
		return eris.Wrapf(domain.ErrInvalidInput,
			"policy: fast_transaction_seconds must be >= 0 (got %v)", l.FastTransactionSeconds)
	case l.NightStartHour < 0 || l.NightStartHour > 23 || l.NightEndHour < 0 || l.NightEndHour > 23:
		return eris.Wrapf(domain.ErrInvalidInput,
			"policy: night hours must be within 0-23 (got %d-%d)", l.NightStartHour, l.NightEndHour)
	case l.ChallengeScore < 1 || l.BlockScore <= l.ChallengeScore || l.BlockScore > maxScore:
		return eris.Wrapf(domain.ErrInvalidInput,
			"policy: score cutoffs must satisfy 1 <= challenge < block <= %d (got %d, %d)",
			maxScore, l.ChallengeScore, l.BlockScore)
	}
	return nil
}

// IsNight reports whether hour falls in the night window.
func (l Limits) IsNight(hour int) bool {
	if l.NightStartHour <= l.NightEndHour {
		return hour >= l.NightStartHour && hour < l.NightEndHour
	}
	return hour >= l.NightStartHour || hour < l.NightEndHour
}
