// Package conversation turns inbound channel events into replies: NLU
// lookup, action dispatch against the booking backend, and hand-off to the
// delivery sequencer.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// IntentDetector is the NLU boundary.
type IntentDetector interface {
	DetectIntent(ctx context.Context, sessionID, text string) (*IntentResult, error)
}

// SessionResolver maps a channel user to an NLU session.
type SessionResolver interface {
	Resolve(ctx context.Context, userID string) string
}

// Deliverer schedules fragments for paced delivery without blocking.
type Deliverer interface {
	Deliver(recipientID string, fragments []fragment.Fragment)
}

// TypingIndicator toggles the channel's "typing…" bubble.
type TypingIndicator interface {
	SetTypingIndicator(ctx context.Context, recipientID string, on bool)
}

// ErrRelayClosed is returned by Submit after Shutdown.
var ErrRelayClosed = errors.New("conversation: relay closed")

const (
	defaultEventTimeout = 30 * time.Second
	maxFollowUps        = 1
)

// RelayConfig wires a Relay.
type RelayConfig struct {
	Sessions     SessionResolver
	NLU          IntentDetector
	Dispatcher   *Dispatcher
	Deliverer    Deliverer
	Typing       TypingIndicator
	Logger       *logging.Logger
	Observer     Observer
	EventTimeout time.Duration
}

// Relay handles inbound events: it resolves the user's session, asks the
// NLU what the user meant, dispatches the result and hands the reply to the
// sequencer.
//
// Events run concurrently and independently. Two quick messages from the
// same user are not serialized, so their replies may interleave.
type Relay struct {
	sessions   SessionResolver
	nlu        IntentDetector
	dispatcher *Dispatcher
	deliverer  Deliverer
	typing     TypingIndicator
	logger     *logging.Logger
	observer   Observer
	timeout    time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRelay creates a Relay.
func NewRelay(cfg RelayConfig) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDispatcher(nil, cfg.Logger, cfg.Observer)
	}
	return &Relay{
		sessions:   cfg.Sessions,
		nlu:        cfg.NLU,
		dispatcher: cfg.Dispatcher,
		deliverer:  cfg.Deliverer,
		typing:     cfg.Typing,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		timeout:    cfg.EventTimeout,
	}
}

// Submit handles ev on its own goroutine and returns immediately.
func (r *Relay) Submit(ev Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRelayClosed
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.HandleEvent(ctx, ev)
	}()
	return nil
}

// Shutdown stops accepting events and waits for in-flight ones, or for ctx.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleEvent processes one event synchronously.
func (r *Relay) HandleEvent(ctx context.Context, ev Event) {
	r.observer.ObserveEvent(string(ev.Kind))
	logger := r.logger.With("sender_id", ev.SenderID, "event", string(ev.Kind))

	switch ev.Kind {
	case EventMessage:
		if ev.Text == "" {
			logger.Debug("message without text ignored", "mid", ev.MessageID)
			return
		}
		r.HandleText(ctx, ev.SenderID, ev.Text)
	case EventQuickReply:
		logger.Info("quick reply received", "mid", ev.MessageID, "payload", ev.Payload)
		r.HandleText(ctx, ev.SenderID, ev.Payload)
	case EventAttachment:
		r.reply(ev.SenderID, fragment.NewText(msgAttachmentReceived))
	case EventEcho:
		logger.Info("echo received", "mid", ev.MessageID, "app_id", ev.AppID, "metadata", ev.Metadata)
	case EventOptIn:
		logger.Info("authentication received", "recipient_id", ev.RecipientID, "ref", ev.Ref, "timestamp", ev.Timestamp)
		r.reply(ev.SenderID, fragment.NewText(msgAuthenticated))
	case EventPostback:
		logger.Info("postback received", "recipient_id", ev.RecipientID, "payload", ev.Payload, "timestamp", ev.Timestamp)
		r.reply(ev.SenderID, fragment.NewText(msgNotSure))
	case EventDelivery:
		for _, mid := range ev.MessageIDs {
			logger.Debug("delivery confirmed", "mid", mid)
		}
		logger.Info("messages delivered", "watermark", ev.Watermark, "seq", ev.Seq)
	case EventRead:
		logger.Info("messages read", "watermark", ev.Watermark, "seq", ev.Seq)
	case EventAccountLinking:
		logger.Info("account linking", "status", ev.LinkStatus, "auth_code", ev.AuthCode)
	default:
		logger.Warn("unknown messaging event")
	}
}

// HandleText runs one utterance through the NLU and delivers the reply.
func (r *Relay) HandleText(ctx context.Context, senderID, text string) {
	r.handleText(ctx, senderID, text, 0)
}

func (r *Relay) handleText(ctx context.Context, senderID, text string, depth int) {
	sessionID := r.sessions.Resolve(ctx, senderID)

	r.setTyping(ctx, senderID, true)
	start := time.Now()
	result, err := r.nlu.DetectIntent(ctx, sessionID, text)
	elapsed := time.Since(start).Seconds()
	r.setTyping(ctx, senderID, false)

	if err != nil {
		r.observer.ObserveNLU("error", elapsed)
		r.logger.Error("nlu detect intent failed",
			"sender_id", senderID,
			"session_id", sessionID,
			"error", err,
		)
		return
	}
	r.observer.ObserveNLU("ok", elapsed)
	if result == nil {
		r.logger.Warn("nlu returned no result", "sender_id", senderID, "session_id", sessionID)
		r.reply(senderID, r.dispatcher.Respond(ctx, senderID, nil).Fragments...)
		return
	}
	r.logger.Debug("nlu result",
		"sender_id", senderID,
		"action", result.Action,
		"fragments", len(result.Fragments),
		"contexts", len(result.Contexts),
	)

	reply := r.dispatcher.Respond(ctx, senderID, result)
	r.reply(senderID, reply.Fragments...)

	if reply.FollowUp != "" {
		if depth >= maxFollowUps {
			r.logger.Warn("follow-up dropped", "sender_id", senderID, "utterance", reply.FollowUp)
			return
		}
		r.handleText(ctx, senderID, reply.FollowUp, depth+1)
	}
}

func (r *Relay) reply(recipientID string, frags ...fragment.Fragment) {
	if len(frags) == 0 || r.deliverer == nil {
		return
	}
	r.deliverer.Deliver(recipientID, frags)
}

func (r *Relay) setTyping(ctx context.Context, recipientID string, on bool) {
	if r.typing != nil {
		r.typing.SetTypingIndicator(ctx, recipientID, on)
	}
}
