package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/api"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/config"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/metrics"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/policy"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

func runServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L()

	// ── Wire dependencies ─────────────────────────────────────────────────────
	deps, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Store.Close() //nolint:errcheck

	router := api.NewRouter(api.NewHandler(deps))

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("model", cfg.Model.Path),
			zap.String("model_version", deps.Models.Current().Package.Version),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server: listen")
		}
		close(errCh)
	}()

	// Graceful shutdown on SIGINT / SIGTERM.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	if deps.Notifier != nil {
		deps.Notifier.Wait()
	}
	log.Info("server stopped")
	return nil
}

// wire builds the handler dependencies. The model package must load; the
// server never starts without one.
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) (api.Deps, error) {
	scorerClient := &http.Client{Timeout: time.Duration(cfg.Scorer.TimeoutSecs) * time.Second}

	active, err := modelpkg.Open(cfg.Model.Path, scorerClient)
	if err != nil {
		return api.Deps{}, eris.Wrap(err, "server: open model package")
	}
	metrics.ModelThreshold.Set(active.Package.Threshold)
	log.Info("model package loaded",
		zap.String("version", active.Package.Version),
		zap.String("scorer", active.Package.Scorer.Kind),
		zap.Int("features", len(active.Package.Features)),
		zap.Float64("threshold", active.Package.Threshold),
	)

	engine, err := policy.New(cfg.Policy)
	if err != nil {
		return api.Deps{}, eris.Wrap(err, "server: policy")
	}

	grid, err := cfg.Calibration.Grid()
	if err != nil {
		return api.Deps{}, eris.Wrap(err, "server: calibration grid")
	}

	notifier, err := webhook.New(webhook.Config{
		URLs:        cfg.Alerts.WebhookURLs,
		MinDecision: domain.Decision(cfg.Alerts.MinDecision),
		Timeout:     cfg.Alerts.Timeout(),
	}, log)
	if err != nil {
		return api.Deps{}, eris.Wrap(err, "server: alerts")
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return api.Deps{}, eris.Wrap(err, "server: open store")
	}

	return api.Deps{
		Models:       modelpkg.NewHolder(active),
		Engine:       engine,
		Calibrator:   calibration.New(cfg.Calibration.Workers),
		Store:        st,
		Notifier:     notifier,
		ModelPath:    cfg.Model.Path,
		ScorerClient: scorerClient,
		Cost:         cfg.Calibration.CostModel(),
		Grid:         grid,
		Log:          log,
	}, nil
}
