package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var thresholds = AlertConfig{FailureRateThreshold: 0.2, NotFoundThreshold: 0.5}

func TestAlerter_Evaluate_Healthy(t *testing.T) {
	a := NewAlerter(thresholds)
	alerts := a.Evaluate(JobSummary{JobID: "j", Total: 10, Completed: 8, NotFound: 1, Error: 1})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_SmallJobIgnored(t *testing.T) {
	a := NewAlerter(thresholds)
	assert.Empty(t, a.Evaluate(JobSummary{Total: 2, Error: 2}))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(thresholds)
	alerts := a.Evaluate(JobSummary{JobID: "job-1", Total: 10, Completed: 6, Error: 2, PartialError: 2})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertItemFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "job-1")
}

func TestAlerter_Evaluate_NotFoundRate(t *testing.T) {
	a := NewAlerter(thresholds)
	alerts := a.Evaluate(JobSummary{JobID: "job-2", Total: 8, NotFound: 6, Completed: 2})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertNotFoundRate, alerts[0].Type)
}

func TestAlerter_Notify(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := thresholds
	cfg.WebhookURL = srv.URL
	sent := NewAlerter(cfg).Notify(context.Background(), JobSummary{Total: 10, Error: 5, NotFound: 5})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestAlerter_Notify_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := thresholds
	cfg.WebhookURL = srv.URL
	assert.Equal(t, 0, NewAlerter(cfg).Notify(context.Background(), JobSummary{Total: 10, Error: 10}))
}

func TestAlerter_Notify_Disabled(t *testing.T) {
	assert.Equal(t, 0, NewAlerter(thresholds).Notify(context.Background(), JobSummary{Total: 10, Error: 10}))

	var a *Alerter
	assert.Equal(t, 0, a.Notify(context.Background(), JobSummary{Total: 10, Error: 10}))
}
