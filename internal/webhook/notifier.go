// Package webhook posts alerts to configured URLs when a decision is at or
// above the configured severity.
//
// Notifications are sent in a goroutine so they never block the HTTP response.
// Failed deliveries are logged and counted but not retried.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/metrics"
)

// EventHighRiskDecision is the event name carried in every payload.
const EventHighRiskDecision = "high_risk_decision"

// Config selects where and when alerts are sent.
type Config struct {
	URLs        []string
	MinDecision domain.Decision
	Timeout     time.Duration
}

// Notifier sends alert payloads to every configured endpoint.
type Notifier struct {
	urls    []string
	min     domain.Decision
	timeout time.Duration
	client  *http.Client
	log     *zap.Logger

	wg sync.WaitGroup
}

// New creates a Notifier. An empty MinDecision defaults to BLOCK and a zero
// timeout to five seconds.
func New(cfg Config, log *zap.Logger) (*Notifier, error) {
	minDecision := cfg.MinDecision
	if minDecision == "" {
		minDecision = domain.DecisionBlock
	}
	if !minDecision.Valid() {
		return nil, eris.Wrapf(domain.ErrInvalidInput, "webhook: unknown min decision %q", minDecision)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.L()
	}
	return &Notifier{
		urls:    append([]string(nil), cfg.URLs...),
		min:     minDecision,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("webhook"),
	}, nil
}

// Triggers reports whether a decision is severe enough to alert on.
func (n *Notifier) Triggers(d domain.Decision) bool {
	return d.Severity() >= n.min.Severity()
}

// NotifyAsync fires webhook calls in the background for the given record.
// It returns the number of deliveries started.
func (n *Notifier) NotifyAsync(rec domain.DecisionRecord) int {
	if len(n.urls) == 0 || !n.Triggers(rec.Decision) {
		return 0
	}

	payload := domain.AlertPayload{
		Event:       EventHighRiskDecision,
		TriggeredAt: time.Now().UTC(),
		Decision:    rec,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("failed to marshal payload", zap.String("decision_id", rec.ID), zap.Error(err))
		return 0
	}

	for _, url := range n.urls {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.send(url, rec, body)
		}(url)
	}
	return len(n.urls)
}

// Wait blocks until all in-flight deliveries finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// send delivers a single webhook call and logs the outcome.
func (n *Notifier) send(url string, rec domain.DecisionRecord, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		n.log.Error("failed to build request", zap.String("url", url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Fraud-Event", EventHighRiskDecision)

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		n.log.Warn("delivery failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	result := "delivered"
	if resp.StatusCode >= 300 {
		result = "rejected"
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues(result).Inc()

	n.log.Info(result,
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.String("decision_id", rec.ID),
		zap.String("decision", string(rec.Decision)),
		zap.Int("risk_score", rec.RiskScore),
	)
}
