package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertItemFailureRate AlertType = "item_failure_rate"
	AlertNotFoundRate    AlertType = "not_found_rate"
)

// minItemsForAlert keeps tiny jobs from alerting on one bad row.
const minItemsForAlert = 5

// Alert is one webhook payload.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// JobSummary counts terminal statuses of a finished job.
type JobSummary struct {
	JobID        string
	Total        int
	Completed    int
	DineoutOnly  int
	NotFound     int
	PartialError int
	Error        int
}

// AlertConfig holds alert thresholds. An empty WebhookURL disables sending.
type AlertConfig struct {
	WebhookURL           string
	FailureRateThreshold float64
	NotFoundThreshold    float64
}

// Alerter evaluates job summaries and posts alerts to a webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

// NewAlerter creates an Alerter.
func NewAlerter(cfg AlertConfig) *Alerter {
	return &Alerter{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Evaluate returns the alerts s triggers.
func (a *Alerter) Evaluate(s JobSummary) []Alert {
	if s.Total < minItemsForAlert {
		return nil
	}
	var alerts []Alert
	now := time.Now().UTC()

	failed := s.Error + s.PartialError
	if rate := float64(failed) / float64(s.Total); a.cfg.FailureRateThreshold > 0 && rate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertItemFailureRate,
			Severity: "high",
			Message: fmt.Sprintf("Job %s: %.1f%% of items failed (%d/%d), threshold %.1f%%",
				s.JobID, rate*100, failed, s.Total, a.cfg.FailureRateThreshold*100),
			Details: map[string]any{
				"job_id":        s.JobID,
				"failure_rate":  rate,
				"threshold":     a.cfg.FailureRateThreshold,
				"errors":        s.Error,
				"partial_error": s.PartialError,
			},
			Timestamp: now,
		})
	}

	// A burst of not-found usually means the search provider is challenging us.
	if rate := float64(s.NotFound) / float64(s.Total); a.cfg.NotFoundThreshold > 0 && rate > a.cfg.NotFoundThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertNotFoundRate,
			Severity: "medium",
			Message: fmt.Sprintf("Job %s: %.1f%% of items not found (%d/%d)",
				s.JobID, rate*100, s.NotFound, s.Total),
			Details: map[string]any{
				"job_id":    s.JobID,
				"not_found": s.NotFound,
				"threshold": a.cfg.NotFoundThreshold,
			},
			Timestamp: now,
		})
	}
	return alerts
}

// Notify evaluates s and sends any alerts. It returns the number sent.
func (a *Alerter) Notify(ctx context.Context, s JobSummary) int {
	if a == nil || a.cfg.WebhookURL == "" {
		return 0
	}
	sent := 0
	for _, alert := range a.Evaluate(s) {
		if err := a.send(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("job_id", s.JobID),
		)
		sent++
	}
	return sent
}

func (a *Alerter) send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
