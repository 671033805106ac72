// Package messenger is the Facebook Messenger channel: webhook intake and
// delivery of relay fragments through the Send API.
package messenger

import (
	"context"
	"net/http"

	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// SendObserver records outbound send outcomes.
type SendObserver interface {
	ObserveSend(kind, status string)
}

type nopSendObserver struct{}

func (nopSendObserver) ObserveSend(string, string) {}

// Adapter is the Messenger channel adapter. Sends are best effort: failures
// are logged and counted, never returned.
type Adapter struct {
	client   *Client
	webhook  *WebhookHandler
	logger   *logging.Logger
	observer SendObserver
}

// AdapterConfig wires an Adapter.
type AdapterConfig struct {
	Client      *Client
	VerifyToken string
	AppSecret   string
	Logger      *logging.Logger
	Observer    SendObserver
	// OnEvent receives every inbound messaging event.
	OnEvent func(conversation.Event)
}

// NewAdapter creates a new Messenger adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopSendObserver{}
	}
	a := &Adapter{
		client:   cfg.Client,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}

	a.webhook = NewWebhookHandler(cfg.VerifyToken, cfg.AppSecret, cfg.Logger, func(ev conversation.Event) {
		a.logger.Info("messenger: inbound event",
			"sender_id", ev.SenderID,
			"kind", string(ev.Kind),
			"timestamp", ev.Timestamp,
		)
		if cfg.OnEvent != nil {
			cfg.OnEvent(ev)
		}
	})

	return a
}

// HandleVerification handles GET /webhook.
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhook.
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

// Send delivers one unit to recipientID.
func (a *Adapter) Send(ctx context.Context, recipientID string, unit fragment.DeliveryUnit) {
	if unit.IsCarousel() {
		if len(unit.Cards) == 0 {
			return
		}
		_, err := a.client.SendGenericTemplate(ctx, recipientID, cardElements(unit.Cards))
		a.record(recipientID, "carousel", err)
		return
	}

	f := unit.Fragment
	switch f.Kind {
	case fragment.KindText:
		if f.Text == nil {
			return
		}
		for _, line := range f.Text.Lines {
			if line == "" {
				continue
			}
			_, err := a.client.SendTextMessage(ctx, recipientID, line)
			a.record(recipientID, "text", err)
		}
	case fragment.KindQuickReplies:
		if f.QuickReplies == nil {
			return
		}
		_, err := a.client.SendQuickReplies(ctx, recipientID, f.QuickReplies.Title, quickReplies(f.QuickReplies.Options))
		a.record(recipientID, "quick_replies", err)
	case fragment.KindImage:
		if f.Image == nil {
			return
		}
		_, err := a.client.SendImage(ctx, recipientID, f.Image.URI)
		a.record(recipientID, "image", err)
	case fragment.KindCard:
		if f.Card == nil {
			return
		}
		_, err := a.client.SendGenericTemplate(ctx, recipientID, cardElements([]fragment.Card{*f.Card}))
		a.record(recipientID, "carousel", err)
	default:
		a.logger.Warn("messenger: unsupported fragment", "kind", string(f.Kind))
	}
}

// SendButtons sends a button template built from card-style buttons.
func (a *Adapter) SendButtons(ctx context.Context, recipientID, text string, buttons []fragment.Button) {
	_, err := a.client.SendButtonMessage(ctx, recipientID, text, templateButtons(buttons))
	a.record(recipientID, "buttons", err)
}

// SetTypingIndicator turns the typing bubble on or off.
func (a *Adapter) SetTypingIndicator(ctx context.Context, recipientID string, on bool) {
	action := ActionTypingOff
	if on {
		action = ActionTypingOn
	}
	_, err := a.client.SendAction(ctx, recipientID, action)
	a.record(recipientID, action, err)
}

// MarkSeen sends a read receipt.
func (a *Adapter) MarkSeen(ctx context.Context, recipientID string) {
	_, err := a.client.SendAction(ctx, recipientID, ActionMarkSeen)
	a.record(recipientID, ActionMarkSeen, err)
}

func (a *Adapter) record(recipientID, kind string, err error) {
	if err != nil {
		a.observer.ObserveSend(kind, "error")
		a.logger.Error("messenger: failed to send",
			"recipient_id", recipientID,
			"kind", kind,
			"error", err,
		)
		return
	}
	a.observer.ObserveSend(kind, "ok")
	a.logger.Debug("messenger: sent", "recipient_id", recipientID, "kind", kind)
}

func quickReplies(options []fragment.Option) []QuickReply {
	out := make([]QuickReply, 0, len(options))
	for _, o := range options {
		out = append(out, QuickReply{ContentType: "text", Title: o.Title, Payload: o.Payload})
	}
	return out
}

func cardElements(cards []fragment.Card) []Element {
	out := make([]Element, 0, len(cards))
	for _, c := range cards {
		out = append(out, Element{
			Title:    c.Title,
			Subtitle: c.Subtitle,
			ImageURL: c.ImageURI,
			Buttons:  templateButtons(c.Buttons),
		})
	}
	return out
}

func templateButtons(buttons []fragment.Button) []Button {
	out := make([]Button, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, templateButton(b))
	}
	return out
}

// templateButton links when the target looks like a URL, else posts back.
func templateButton(b fragment.Button) Button {
	if b.IsLink() {
		return Button{Type: ButtonWebURL, Title: b.Text, URL: b.Target}
	}
	return Button{Type: ButtonPostback, Title: b.Text, Payload: b.Target}
}
