package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/messenger-booking-relay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

type silentNLU struct{}

func (silentNLU) DetectIntent(context.Context, string, string) (*conversation.IntentResult, error) {
	return &conversation.IntentResult{}, nil
}

func newTestRuntime(t *testing.T, reg *prometheus.Registry) *bootstrap.Runtime {
	t.Helper()
	cfg := &appconfig.Config{
		VerifyToken:    "vt",
		AppSecret:      "secret",
		SessionStore:   "memory",
		PacingInterval: time.Millisecond,
		WebhookRate:    10,
		WebhookBurst:   10,
	}
	rt, err := bootstrap.BuildRuntime(context.Background(), cfg, logging.New("error"), bootstrap.RuntimeOptions{
		Registerer: reg,
		NLU:        silentNLU{},
	})
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := newTestRuntime(t, reg)
	handler := newHandler(rt, reg)

	rt.Metrics.ObserveEvent("message")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "relay_webhook_events_total") {
		t.Fatalf("expected event counter to be exported")
	}
}

func TestHandlerServesWebhookVerification(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := newHandler(newTestRuntime(t, reg), reg)

	req := httptest.NewRequest(http.MethodGet, "/webhook/?hub.mode=subscribe&hub.verify_token=vt&hub.challenge=42", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "42" {
		t.Fatalf("unexpected verification response: %d %q", rr.Code, rr.Body.String())
	}
}
