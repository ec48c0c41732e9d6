package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/metrics"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/scorer"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
)

func runCalibrate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "calibrate"))

	// Parse flags.
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	basePath, _ := cmd.Flags().GetString("base")
	scorerURL, _ := cmd.Flags().GetString("scorer-url")
	version, _ := cmd.Flags().GetString("version")
	format, _ := cmd.Flags().GetString("format")
	curvePath, _ := cmd.Flags().GetString("curve-output")
	record, _ := cmd.Flags().GetBool("record")

	if format != "table" && format != "csv" {
		return eris.Errorf("calibrate: --format must be table or csv (got %q)", format)
	}
	if outputPath != "" && basePath == "" && scorerURL == "" {
		return eris.New("calibrate: --output needs --base or --scorer-url")
	}

	applyOverrides(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	grid, err := cfg.Calibration.Grid()
	if err != nil {
		return err
	}

	ds, err := readDataset(inputPath)
	if err != nil {
		return err
	}
	log.Info("validation set loaded",
		zap.String("input", inputPath),
		zap.Int("samples", len(ds.Labels)),
	)

	start := time.Now()
	cal := calibration.New(cfg.Calibration.Workers)
	result, err := cal.Calibrate(ctx, ds.Probabilities, ds.Labels, cfg.Calibration.CostModel(), grid)
	if err != nil {
		return eris.Wrap(err, "calibrate: run")
	}
	metrics.CalibrationRunsTotal.WithLabelValues("cli").Inc()

	run := &domain.CalibrationRun{
		ID:        uuid.NewString(),
		Source:    "cli",
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	log.Info("calibration complete",
		zap.String("run_id", run.ID),
		zap.Float64("threshold", result.Threshold),
		zap.Float64("total_cost", result.TotalCost),
		zap.Int("positives", result.Positives),
		zap.Duration("elapsed", time.Since(start)),
	)

	// Write output.
	out := cmd.OutOrStdout()
	if format == "csv" {
		err = writeCurveCSV(out, result.Curve)
	} else {
		err = writeCurveTable(out, result)
	}
	if err != nil {
		return err
	}
	if curvePath != "" {
		if err := writeCurveFile(curvePath, result.Curve); err != nil {
			return err
		}
	}

	if record {
		if err := recordRun(ctx, run, log); err != nil {
			return err
		}
	}

	if outputPath != "" {
		var base *modelpkg.Package
		if basePath != "" {
			base, err = modelpkg.Load(basePath)
			if err != nil {
				return eris.Wrap(err, "calibrate: load base package")
			}
		}
		pkg, err := buildPackage(base, scorerURL, version, run, cfg.Scorer.TimeoutSecs)
		if err != nil {
			return err
		}
		if err := modelpkg.Save(pkg, outputPath); err != nil {
			return err
		}
		log.Info("model package written",
			zap.String("output", outputPath),
			zap.String("version", pkg.Version),
			zap.Float64("threshold", pkg.Threshold),
		)
	}

	return nil
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("cost-fp") {
		cfg.Calibration.CostFalsePositive, _ = f.GetFloat64("cost-fp")
	}
	if f.Changed("cost-fn") {
		cfg.Calibration.CostFalseNegative, _ = f.GetFloat64("cost-fn")
	}
	if f.Changed("grid-start") {
		cfg.Calibration.GridStart, _ = f.GetFloat64("grid-start")
	}
	if f.Changed("grid-stop") {
		cfg.Calibration.GridStop, _ = f.GetFloat64("grid-stop")
	}
	if f.Changed("grid-step") {
		cfg.Calibration.GridStep, _ = f.GetFloat64("grid-step")
	}
	if f.Changed("workers") {
		cfg.Calibration.Workers, _ = f.GetInt("workers")
	}
}

func readDataset(path string) (*calibration.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "calibrate: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ds, err := calibration.ReadCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "calibrate: read %s", path)
	}
	return ds, nil
}

func recordRun(ctx context.Context, run *domain.CalibrationRun, log *zap.Logger) error {
	if cfg.Store.Driver == store.DriverMemory {
		log.Warn("store driver is memory, the recorded run will not outlive this command")
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return eris.Wrap(err, "calibrate: open store")
	}
	defer st.Close() //nolint:errcheck

	if err := st.SaveRun(ctx, run); err != nil {
		return eris.Wrap(err, "calibrate: record run")
	}
	log.Info("run recorded", zap.String("run_id", run.ID), zap.String("store", cfg.Store.Driver))
	return nil
}

// buildPackage derives a package from base, or creates an http-scored package
// with the training feature order when base is nil.
func buildPackage(base *modelpkg.Package, scorerURL, version string, run *domain.CalibrationRun, timeoutSecs int) (*modelpkg.Package, error) {
	var pkg modelpkg.Package
	switch {
	case base != nil:
		pkg = *base
	case scorerURL != "":
		pkg = modelpkg.Package{
			Scorer: scorer.Ref{
				Kind:        scorer.KindHTTP,
				Endpoint:    scorerURL,
				TimeoutSecs: timeoutSecs,
			},
			Features: features.TrainingNames(),
		}
	default:
		return nil, eris.New("calibrate: no base package or scorer url")
	}

	if version == "" {
		version = "cal-" + run.CreatedAt.Format("20060102T150405Z")
	}
	pkg.Version = version
	pkg.CreatedAt = run.CreatedAt
	pkg.Threshold = run.Result.Threshold
	pkg.Cost = run.Result.CostModel
	pkg.Calibration = &modelpkg.Provenance{
		RunID:        run.ID,
		Samples:      run.Result.Samples,
		Positives:    run.Result.Positives,
		TotalCost:    run.Result.TotalCost,
		CalibratedAt: run.CreatedAt,
	}
	return &pkg, nil
}
