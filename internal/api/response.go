// Package api contains the HTTP layer: routing, request binding, and response formatting.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/features"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/modelpkg"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
)

// ─── Response envelope ────────────────────────────────────────────────────────

// envelope is the standard wrapper for all API responses.
// Success responses set `error` to nil; error responses set `data` to nil.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// writeJSON serialises v into the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// ok writes a 200 response with the payload wrapped in the standard envelope.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// created writes a 201 response.
func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

// badRequest writes a 400 error response.
func badRequest(w http.ResponseWriter, code, message string) {
	fail(w, http.StatusBadRequest, code, message)
}

// notFound writes a 404 error response.
func notFound(w http.ResponseWriter, message string) {
	fail(w, http.StatusNotFound, "NOT_FOUND", message)
}

// internalError writes a 500 error response.
func internalError(w http.ResponseWriter) {
	fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// statusClientClosedRequest is written when the caller went away mid-request.
const statusClientClosedRequest = 499

// writeError maps a domain error onto a status code. Unknown errors are
// logged and reported as 500 without leaking details.
func writeError(w http.ResponseWriter, err error) {
	var loadErr *modelpkg.LoadError
	switch {
	case errors.Is(err, context.Canceled):
		zap.L().Debug("api: request canceled by client", zap.Error(err))
		fail(w, statusClientClosedRequest, "CLIENT_CLOSED_REQUEST", "request canceled")
	case errors.As(err, &loadErr):
		fail(w, http.StatusUnprocessableEntity, "MODEL_LOAD_FAILED", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		badRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, features.ErrFeatureMismatch):
		badRequest(w, "FEATURE_MISMATCH", err.Error())
	case errors.Is(err, store.ErrNotFound):
		notFound(w, err.Error())
	case errors.Is(err, store.ErrDuplicateRun):
		fail(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		zap.L().Error("api: unhandled error", zap.Error(err))
		internalError(w)
	}
}
