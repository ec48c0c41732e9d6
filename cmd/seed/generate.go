package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/scorer"
)

// sample is one generated transaction with its ground-truth label.
type sample struct {
	attrs domain.Attributes
	label int
}

// generate returns rows samples, round(rows*fraudRate) of them fraudulent
// (at least one of each class), shuffled.
func generate(rng *rand.Rand, rows int, fraudRate float64) []sample {
	fraud := int(math.Round(float64(rows) * fraudRate))
	if fraud < 1 {
		fraud = 1
	}
	if fraud > rows-1 {
		fraud = rows - 1
	}
	legit := rows - fraud

	unusual := legit / 10
	takeover := fraud * 6 / 10

	var out []sample
	out = append(out, generateRegular(rng, legit-unusual)...)
	out = append(out, generateUnusual(rng, unusual)...)
	out = append(out, generateTakeover(rng, takeover)...)
	out = append(out, generateCardTesting(rng, fraud-takeover)...)

	// Shuffle so segments aren't trivially grouped in the file.
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// ─── Legitimate ───────────────────────────────────────────────────────────────

// generateRegular: everyday purchases, log-normal around ~33, daytime, spaced
// minutes to hours apart.
func generateRegular(rng *rand.Rand, n int) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		amount := math.Max(1, roundTo2(math.Exp(3.5+rng.NormFloat64()*0.8)))
		out = append(out, sample{attrs: domain.Attributes{
			Amount:   amount,
			TimeDiff: roundTo2(600 + rng.ExpFloat64()*7200),
			Hour:     8 + rng.Intn(14),
		}})
	}
	return out
}

// generateUnusual: genuine large purchases at any hour, usually long after
// the previous transaction.
func generateUnusual(rng *rand.Rand, n int) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample{attrs: domain.Attributes{
			Amount:   roundTo2(800 + rng.Float64()*2200),
			TimeDiff: roundTo2(1800 + rng.ExpFloat64()*20000),
			Hour:     rng.Intn(24),
		}})
	}
	return out
}

// ─── Fraud ────────────────────────────────────────────────────────────────────

// generateTakeover: high-value purchases seconds apart, 70% between 00:00 and
// 05:59.
func generateTakeover(rng *rand.Rand, n int) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		hour := rng.Intn(24)
		if rng.Float64() < 0.7 {
			hour = rng.Intn(6)
		}
		out = append(out, sample{label: 1, attrs: domain.Attributes{
			Amount:   roundTo2(1200 + rng.Float64()*3800),
			TimeDiff: roundTo2(rng.Float64() * 90),
			Hour:     hour,
		}})
	}
	return out
}

// generateCardTesting: tiny probing charges fired in bursts. These are the
// hard cases for the starter model.
func generateCardTesting(rng *rand.Rand, n int) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample{label: 1, attrs: domain.Attributes{
			Amount:   roundTo2(0.5 + rng.Float64()*9.5),
			TimeDiff: roundTo2(rng.Float64() * 20),
			Hour:     rng.Intn(24),
		}})
	}
	return out
}

// ─── Starter package ──────────────────────────────────────────────────────────

// starterPackage is a hand-tuned logistic model over the engineered columns,
// in training feature order, with small latent means.
func starterPackage(rng *rand.Rand) *modelpkg.Package {
	means := make(map[string]float64, features.LatentCount)
	for _, name := range features.LatentNames() {
		means[name] = roundTo2(rng.NormFloat64() * 0.1)
	}

	return &modelpkg.Package{
		Version:   "seed-v1",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Scorer: scorer.Ref{
			Kind: scorer.KindLogistic,
			Bias: -7.5,
			Weights: map[string]float64{
				features.AmountLog: 1.1,
				features.TimeDiff:  -0.0004,
				features.IsNight:   1.5,
			},
		},
		Features:    features.TrainingNames(),
		Threshold:   0.5,
		Cost:        domain.DefaultCostModel(),
		LatentMeans: means,
	}
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func roundTo2(f float64) float64 {
	return float64(int(f*100)) / 100
}
