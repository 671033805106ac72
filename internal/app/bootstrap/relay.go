package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/messenger-booking-relay/internal/booking"
	"github.com/wolfman30/messenger-booking-relay/internal/channels/messenger"
	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/internal/delivery"
	"github.com/wolfman30/messenger-booking-relay/internal/observability/metrics"
	"github.com/wolfman30/messenger-booking-relay/internal/session"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// Runtime is the fully wired relay.
type Runtime struct {
	Config    *appconfig.Config
	Logger    *logging.Logger
	Metrics   *metrics.RelayMetrics
	Sessions  *session.Registry
	Booking   *booking.Client
	Messenger *messenger.Adapter
	Sequencer *delivery.Sequencer
	Relay     *conversation.Relay

	closers []func() error
}

// RuntimeOptions override collaborators, mainly for the CLI and tests.
type RuntimeOptions struct {
	// Registerer receives the relay metrics; defaults to the global registry.
	Registerer prometheus.Registerer
	// NLU replaces the Dialogflow client.
	NLU conversation.IntentDetector
	// Sender replaces the Messenger adapter as the delivery target.
	Sender delivery.Sender
	// Typing replaces the Messenger typing indicator.
	Typing conversation.TypingIndicator
	// Scheduler replaces real pacing timers.
	Scheduler delivery.Scheduler
}

// BuildRuntime wires sessions, NLU, booking backend, dispatcher, sequencer
// and the Messenger channel from cfg.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts RuntimeOptions) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRelayMetrics(opts.Registerer),
	}

	store, closeStore, err := BuildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeStore)
	rt.Sessions = session.NewRegistry(store, logger)

	detector := opts.NLU
	if detector == nil {
		client, err := BuildIntentDetector(ctx, cfg, logger)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		detector = client
	}

	rt.Booking = booking.NewClient(cfg.BookingBackendURL, logger,
		booking.WithTimeout(cfg.BookingTimeout),
		booking.WithObserver(rt.Metrics),
	)

	rt.Messenger = messenger.NewAdapter(messenger.AdapterConfig{
		Client:      BuildMessengerClient(cfg),
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		Logger:      logger,
		Observer:    rt.Metrics,
		OnEvent:     rt.submit,
	})

	var sender delivery.Sender = rt.Messenger
	if opts.Sender != nil {
		sender = opts.Sender
	}
	var typing conversation.TypingIndicator = rt.Messenger
	if opts.Typing != nil {
		typing = opts.Typing
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = delivery.TimerScheduler{}
	}
	rt.Sequencer = delivery.NewSequencer(sender, scheduler, cfg.PacingInterval, logger)

	rt.Relay = conversation.NewRelay(conversation.RelayConfig{
		Sessions:     rt.Sessions,
		NLU:          detector,
		Dispatcher:   conversation.NewDispatcher(rt.Booking, logger, rt.Metrics),
		Deliverer:    rt.Sequencer,
		Typing:       typing,
		Logger:       logger,
		Observer:     rt.Metrics,
		EventTimeout: cfg.EventTimeout,
	})

	return rt, nil
}

func (rt *Runtime) submit(ev conversation.Event) {
	if err := rt.Relay.Submit(ev); err != nil {
		rt.Logger.Warn("event dropped", "sender_id", ev.SenderID, "kind", string(ev.Kind), "error", err)
	}
}

// Shutdown stops accepting events, then waits for in-flight events and
// paced replays, bounded by ctx.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if err := rt.Relay.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("bootstrap: relay shutdown: %w", err))
	}

	done := make(chan struct{})
	go func() {
		rt.Sequencer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("bootstrap: sequencer drain: %w", ctx.Err()))
	}

	if err := rt.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases stores and connections.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
