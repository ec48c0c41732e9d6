// Command calibrate picks the cost-minimizing decision threshold from a
// labelled validation set and optionally writes it into a model package.
//
// Usage:
//
//	go run ./cmd/calibrate --input data/validation.csv [flags]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate the fraud decision threshold",
	Long: `Sweeps a threshold grid over a validation set of (probability, label) pairs
and selects the threshold with the lowest total misclassification cost
(false positives * cost_false_positive + false negatives * cost_false_negative).

The validation CSV needs a header with "probability" and "label" columns.

Examples:
  # Print the cost curve
  calibrate --input data/validation.csv

  # Recalibrate an existing package with custom costs
  calibrate --input data/validation.csv --base data/model.yaml --output data/model.yaml --cost-fn 5000

  # Package a remote model server with the training feature order
  calibrate --input data/validation.csv --scorer-url http://model:9000/score --output data/model.yaml

  # Export the curve and record the run
  calibrate --input data/validation.csv --format csv --curve-output curve.csv --record`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runCalibrate,
}

func init() {
	f := rootCmd.Flags()
	f.String("input", "", "validation CSV with probability,label columns (required)")
	f.String("output", "", "write the calibrated model package to this path")
	f.String("base", "", "model package to recalibrate (keeps its scorer and features)")
	f.String("scorer-url", "", "http scorer endpoint for a new package using the training feature order")
	f.String("version", "", "version of the written package (default cal-<timestamp>)")
	f.Float64("cost-fp", 0, "cost of a false positive (overrides config)")
	f.Float64("cost-fn", 0, "cost of a false negative (overrides config)")
	f.Float64("grid-start", 0, "first grid threshold (overrides config)")
	f.Float64("grid-stop", 0, "last grid threshold (overrides config)")
	f.Float64("grid-step", 0, "grid step (overrides config)")
	f.Int("workers", 0, "parallel sweep workers (overrides config)")
	f.String("format", "table", "curve output format: table or csv")
	f.String("curve-output", "", "also write the curve as CSV to this file")
	f.Bool("record", false, "record the run in the configured store")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
