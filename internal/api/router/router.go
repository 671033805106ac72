package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	httpmiddleware "github.com/wolfman30/messenger-booking-relay/internal/http/middleware"
	"github.com/wolfman30/messenger-booking-relay/internal/observability/metrics"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

const greeting = "Hello world, I am a chat bot"

// WebhookHandler serves the channel webhook.
type WebhookHandler interface {
	HandleVerification(w http.ResponseWriter, r *http.Request)
	HandleWebhook(w http.ResponseWriter, r *http.Request)
}

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        WebhookHandler
	MetricsHandler http.Handler
	// Gatherer feeds the counters reported by /health.
	Gatherer     prometheus.Gatherer
	HTTPObserver httpmiddleware.HTTPObserver
	WebhookRate  float64
	WebhookBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.HTTPObserver))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(greeting))
	})
	r.Get("/health", healthCheck(cfg.Gatherer, cfg.Logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Webhook != nil {
		r.Group(func(hook chi.Router) {
			hook.Use(httpmiddleware.RateLimit(cfg.WebhookRate, cfg.WebhookBurst))
			for _, path := range []string{"/webhook", "/webhook/"} {
				hook.Get(path, cfg.Webhook.HandleVerification)
				hook.Post(path, cfg.Webhook.HandleWebhook)
			}
		})
	}

	return r
}

type healthResponse struct {
	Status  string            `json:"status"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

func healthCheck(gatherer prometheus.Gatherer, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if gatherer != nil {
			snap, err := metrics.TakeSnapshot(gatherer)
			if err != nil && logger != nil {
				logger.Warn("health: gather metrics failed", "error", err)
			} else if err == nil {
				resp.Metrics = &snap
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
