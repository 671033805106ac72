package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/messenger-booking-relay/internal/api/router"
	"github.com/wolfman30/messenger-booking-relay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting messenger booking relay",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_store", cfg.SessionStore,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := bootstrap.BuildRuntime(context.Background(), cfg, logger, bootstrap.RuntimeOptions{Registerer: reg})
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(rt, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := rt.Shutdown(ctx); err != nil {
		logger.Error("relay did not drain cleanly", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newHandler(rt *bootstrap.Runtime, reg *prometheus.Registry) http.Handler {
	return router.New(&router.Config{
		Logger:         rt.Logger,
		Webhook:        rt.Messenger,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Gatherer:       reg,
		HTTPObserver:   rt.Metrics,
		WebhookRate:    rt.Config.WebhookRate,
		WebhookBurst:   rt.Config.WebhookBurst,
	})
}
