// Command seed generates a synthetic validation set and a starter logistic
// model package for local demos.
//
// Usage:
//
//	go run ./cmd/seed [--rows 2000] [--fraud-rate 0.02] [--out-dir data]
//
// The dataset is deterministic (seed 17) and mixes four segments:
//   - regular daytime card purchases (legitimate bulk)
//   - unusual but legitimate purchases: large amounts at any hour
//   - account takeover: large amounts in quick succession, mostly at night
//   - card testing: tiny amounts fired seconds apart
//
// Every transaction is scored by the starter package itself, so the written
// validation.csv is exactly what `calibrate --base <out-dir>/model.yaml` needs.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/policy"
)

const rngSeed = 17

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a demo validation set and starter model package",
	RunE:  runSeed,
}

func init() {
	rootCmd.Flags().Int("rows", 2000, "number of transactions to generate")
	rootCmd.Flags().Float64("fraud-rate", 0.02, "share of fraudulent transactions (0-1)")
	rootCmd.Flags().String("out-dir", "data", "directory for model.yaml and validation.csv")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	rows, _ := cmd.Flags().GetInt("rows")
	fraudRate, _ := cmd.Flags().GetFloat64("fraud-rate")
	outDir, _ := cmd.Flags().GetString("out-dir")

	res, err := seed(cmd.Context(), rows, fraudRate, outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d transactions (%d fraud) → %s\n", res.rows, res.positives, res.validationPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Starter model package → %s\n", res.modelPath)
	return nil
}

type seedResult struct {
	rows           int
	positives      int
	modelPath      string
	validationPath string
}

// seed writes the starter package, scores a generated dataset with it and
// writes the validation set.
func seed(ctx context.Context, rows int, fraudRate float64, outDir string) (seedResult, error) {
	if rows < 2 {
		return seedResult{}, eris.Errorf("seed: --rows must be >= 2 (got %d)", rows)
	}
	if !(fraudRate > 0 && fraudRate < 1) {
		return seedResult{}, eris.Errorf("seed: --fraud-rate must be in (0,1) (got %v)", fraudRate)
	}

	rng := rand.New(rand.NewSource(rngSeed)) // deterministic seed for reproducibility
	limits := policy.DefaultLimits()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return seedResult{}, eris.Wrapf(err, "seed: mkdir %s", outDir)
	}

	modelPath := filepath.Join(outDir, "model.yaml")
	if err := modelpkg.Save(starterPackage(rng), modelPath); err != nil {
		return seedResult{}, err
	}
	active, err := modelpkg.Open(modelPath, nil)
	if err != nil {
		return seedResult{}, err
	}

	samples := generate(rng, rows, fraudRate)
	ds := &calibration.Dataset{
		Probabilities: make([]float64, len(samples)),
		Labels:        make([]int, len(samples)),
	}
	positives := 0
	for i, s := range samples {
		p, err := active.Score(ctx, s.attrs, limits.IsNight(s.attrs.Hour))
		if err != nil {
			return seedResult{}, eris.Wrapf(err, "seed: score row %d", i)
		}
		ds.Probabilities[i] = p
		ds.Labels[i] = s.label
		positives += s.label
	}

	validationPath := filepath.Join(outDir, "validation.csv")
	f, err := os.Create(validationPath)
	if err != nil {
		return seedResult{}, eris.Wrapf(err, "seed: create %s", validationPath)
	}
	if err := calibration.WriteCSV(f, ds); err != nil {
		f.Close() //nolint:errcheck
		return seedResult{}, err
	}
	if err := f.Close(); err != nil {
		return seedResult{}, eris.Wrapf(err, "seed: close %s", validationPath)
	}

	return seedResult{
		rows:           len(samples),
		positives:      positives,
		modelPath:      modelPath,
		validationPath: validationPath,
	}, nil
}
