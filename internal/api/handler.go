package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/metrics"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/policy"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/webhook"
)

const serviceName = "fraud-policy"

const maxListLimit = 1000

// Deps are the collaborators shared across all HTTP handlers.
type Deps struct {
	Models     *modelpkg.Holder
	Engine     *policy.Engine
	Calibrator *calibration.Calibrator
	Store      store.Store
	Notifier   *webhook.Notifier // optional

	// ModelPath is re-opened by the reload endpoint.
	ModelPath string
	// ScorerClient is passed to scorers built on reload; nil uses the package timeout.
	ScorerClient *http.Client

	// Calibration defaults for requests that omit them.
	Cost domain.CostModel
	Grid []float64

	Log *zap.Logger
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	models     *modelpkg.Holder
	engine     *policy.Engine
	calibrator *calibration.Calibrator
	store      store.Store
	notifier   *webhook.Notifier

	modelPath    string
	scorerClient *http.Client
	cost         domain.CostModel
	grid         []float64

	log *zap.Logger
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.L()
	}
	grid := d.Grid
	if len(grid) == 0 {
		grid = calibration.DefaultGrid()
	}
	cost := d.Cost
	if cost == (domain.CostModel{}) {
		cost = domain.DefaultCostModel()
	}
	return &Handler{
		models:       d.Models,
		engine:       d.Engine,
		calibrator:   d.Calibrator,
		store:        d.Store,
		notifier:     d.Notifier,
		modelPath:    d.ModelPath,
		scorerClient: d.ScorerClient,
		cost:         cost,
		grid:         grid,
		log:          log,
	}
}

// ─── GET /health ──────────────────────────────────────────────────────────────

// Health reports liveness and the active model version.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]string{
		"status":        "ok",
		"service":       serviceName,
		"model_version": h.models.Current().Package.Version,
	})
}

// ─── POST /api/v1/decisions ───────────────────────────────────────────────────

// DecisionRequest is the body of a decision call. Probability is optional;
// when omitted the active package scorer provides it.
type DecisionRequest struct {
	TransactionID string   `json:"transaction_id"`
	Amount        *float64 `json:"amount"`
	TimeDiff      *float64 `json:"time_diff"`
	Hour          *int     `json:"hour"`
	Probability   *float64 `json:"probability"`
}

// Decide evaluates one transaction and returns the decision synchronously.
// Nothing is stored.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if err := validateDecisionRequest(&req); err != nil {
		badRequest(w, "MISSING_FIELD", err.Error())
		return
	}

	attrs := domain.Attributes{Amount: *req.Amount, TimeDiff: *req.TimeDiff, Hour: *req.Hour}
	if err := policy.ValidateAttributes(attrs); err != nil {
		writeError(w, err)
		return
	}

	// One snapshot for the whole request so threshold and scorer agree.
	active := h.models.Current()
	pkg := active.Package

	var (
		probability float64
		scored      bool
	)
	if req.Probability != nil {
		probability = *req.Probability
	} else {
		p, err := active.Score(r.Context(), attrs, h.engine.Limits().IsNight(attrs.Hour))
		if err != nil {
			if errors.Is(err, features.ErrFeatureMismatch) || errors.Is(err, domain.ErrInvalidInput) {
				writeError(w, err)
				return
			}
			metrics.ScorerErrorsTotal.Inc()
			h.log.Warn("scorer failed", zap.String("model_version", pkg.Version), zap.Error(err))
			fail(w, http.StatusBadGateway, "SCORER_UNAVAILABLE", "probability scorer failed")
			return
		}
		probability, scored = p, true
	}

	assessment, err := h.engine.Evaluate(attrs, probability, pkg.Threshold)
	if err != nil {
		writeError(w, err)
		return
	}

	rec := domain.DecisionRecord{
		ID:            uuid.NewString(),
		TransactionID: req.TransactionID,
		Attributes:    attrs,
		Probability:   probability,
		Scored:        scored,
		Threshold:     pkg.Threshold,
		ModelVersion:  pkg.Version,
		Assessment:    assessment,
		ProcessedAt:   time.Now().UTC(),
	}

	metrics.DecisionsTotal.WithLabelValues(string(rec.Decision)).Inc()
	metrics.RiskScore.Observe(float64(rec.RiskScore))

	if h.notifier != nil {
		h.notifier.NotifyAsync(rec)
	}

	created(w, rec)
}

func validateDecisionRequest(req *DecisionRequest) error {
	if req.Amount == nil {
		return fmt.Errorf("amount is required")
	}
	if req.TimeDiff == nil {
		return fmt.Errorf("time_diff is required")
	}
	if req.Hour == nil {
		return fmt.Errorf("hour is required")
	}
	return nil
}

// ─── /api/v1/model ────────────────────────────────────────────────────────────

// ModelInfo is the public view of the active model package.
type ModelInfo struct {
	Version     string               `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	Path        string               `json:"path"`
	ScorerKind  string               `json:"scorer_kind"`
	Features    []string             `json:"features"`
	Threshold   float64              `json:"threshold"`
	Cost        domain.CostModel     `json:"cost"`
	Calibration *modelpkg.Provenance `json:"calibration,omitempty"`
}

func modelInfo(a *modelpkg.Active) ModelInfo {
	p := a.Package
	return ModelInfo{
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		Path:        a.Path,
		ScorerKind:  p.Scorer.Kind,
		Features:    p.Features,
		Threshold:   p.Threshold,
		Cost:        p.Cost,
		Calibration: p.Calibration,
	}
}

// GetModel returns metadata of the active model package.
func (h *Handler) GetModel(w http.ResponseWriter, _ *http.Request) {
	ok(w, modelInfo(h.models.Current()))
}

// ReloadModel re-opens the configured package path and swaps it in. A failed
// load keeps the current package.
func (h *Handler) ReloadModel(w http.ResponseWriter, _ *http.Request) {
	next, err := h.models.Reload(h.modelPath, h.scorerClient)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("failed").Inc()
		h.log.Warn("model reload failed, keeping current package",
			zap.String("path", h.modelPath),
			zap.String("current_version", h.models.Current().Package.Version),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	metrics.ModelReloadsTotal.WithLabelValues("ok").Inc()
	metrics.ModelThreshold.Set(next.Package.Threshold)
	h.log.Info("model reloaded",
		zap.String("version", next.Package.Version),
		zap.Float64("threshold", next.Package.Threshold),
	)
	ok(w, modelInfo(next))
}

// ─── /api/v1/calibrations ─────────────────────────────────────────────────────

// CalibrationRequest is the body of a calibration call. Costs and grid fall
// back to the configured defaults.
type CalibrationRequest struct {
	Probabilities     []float64 `json:"probabilities"`
	Labels            []int     `json:"labels"`
	CostFalsePositive *float64  `json:"cost_false_positive"`
	CostFalseNegative *float64  `json:"cost_false_negative"`
	Grid              []float64 `json:"grid"`
}

// CalibrationView is a stored run plus the classification report at its threshold.
type CalibrationView struct {
	*domain.CalibrationRun
	Summary calibration.Summary `json:"summary"`
}

func calibrationView(run *domain.CalibrationRun) CalibrationView {
	return CalibrationView{CalibrationRun: run, Summary: calibration.Summarize(run.Result.Best())}
}

// Calibrate runs the cost-based threshold sweep and records the run.
func (h *Handler) Calibrate(w http.ResponseWriter, r *http.Request) {
	var req CalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}

	cost := h.cost
	if req.CostFalsePositive != nil {
		cost.FalsePositive = *req.CostFalsePositive
	}
	if req.CostFalseNegative != nil {
		cost.FalseNegative = *req.CostFalseNegative
	}
	grid := h.grid
	if len(req.Grid) > 0 {
		grid = req.Grid
	}

	start := time.Now()
	result, err := h.calibrator.Calibrate(r.Context(), req.Probabilities, req.Labels, cost, grid)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.CalibrationDuration.Observe(time.Since(start).Seconds())
	metrics.CalibrationRunsTotal.WithLabelValues("api").Inc()

	run := &domain.CalibrationRun{
		ID:        uuid.NewString(),
		Source:    "api",
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	if err := h.store.SaveRun(r.Context(), run); err != nil {
		writeError(w, err)
		return
	}

	h.log.Info("calibration run recorded",
		zap.String("run_id", run.ID),
		zap.Int("samples", result.Samples),
		zap.Float64("threshold", result.Threshold),
		zap.Float64("total_cost", result.TotalCost),
	)
	created(w, calibrationView(run))
}

// ListCalibrations returns recorded runs, newest first.
//
// Query params:
//
//	limit: maximum number of runs (default 100, max 1000)
func (h *Handler) ListCalibrations(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			badRequest(w, "INVALID_PARAM", fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit))
			return
		}
		limit = parsed
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]CalibrationView, len(runs))
	for i := range runs {
		views[i] = calibrationView(&runs[i])
	}
	ok(w, map[string]any{"runs": views, "count": len(views)})
}

// GetCalibration retrieves a recorded run by its ID.
func (h *Handler) GetCalibration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, fmt.Sprintf("calibration run '%s' not found", id))
			return
		}
		writeError(w, err)
		return
	}
	ok(w, calibrationView(run))
}
