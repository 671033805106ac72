package messenger

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles Messenger webhook verification and inbound events.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onEvent     func(conversation.Event)
	logger      *logging.Logger
}

// NewWebhookHandler creates a new webhook handler.
// onEvent is called for each parsed messaging event, after the response
// has been written.
func NewWebhookHandler(verifyToken, appSecret string, logger *logging.Logger, onEvent func(conversation.Event)) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onEvent:     onEvent,
		logger:      logger,
	}
}

// HandleVerification handles the GET webhook verification challenge.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	h.logger.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook callbacks.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !h.verifyRequest(r.Header, body) {
		h.logger.Warn("webhook signature rejected", "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if event.Object != "page" {
		http.NotFound(w, r)
		return
	}

	// Must respond 200 quickly to avoid redelivery.
	w.WriteHeader(http.StatusOK)

	for _, ev := range ParseWebhookEvent(event) {
		if h.onEvent != nil {
			h.onEvent(ev)
		}
	}
}

func (h *WebhookHandler) verifyRequest(header http.Header, body []byte) bool {
	if sig := header.Get("X-Hub-Signature-256"); sig != "" {
		return VerifySignature(h.appSecret, body, sig)
	}
	return VerifySignature(h.appSecret, body, header.Get("X-Hub-Signature"))
}

// ParseWebhookEvent normalizes every messaging event of a page callback.
func ParseWebhookEvent(event WebhookEvent) []conversation.Event {
	var events []conversation.Event

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			events = append(events, parseMessaging(m))
		}
	}

	return events
}

func parseMessaging(m Messaging) conversation.Event {
	ev := conversation.Event{
		Kind:        conversation.EventUnknown,
		SenderID:    m.Sender.ID,
		RecipientID: m.Recipient.ID,
		Timestamp:   time.UnixMilli(m.Timestamp),
	}

	switch {
	case m.OptIn != nil:
		ev.Kind = conversation.EventOptIn
		ev.Ref = m.OptIn.Ref
	case m.Message != nil:
		msg := m.Message
		ev.MessageID = msg.MID
		ev.Text = msg.Text
		ev.AppID = msg.AppID
		ev.Metadata = msg.Metadata
		switch {
		case msg.IsEcho:
			ev.Kind = conversation.EventEcho
		case msg.QuickReply != nil:
			ev.Kind = conversation.EventQuickReply
			ev.Payload = msg.QuickReply.Payload
		case msg.Text == "" && len(msg.Attachments) > 0:
			ev.Kind = conversation.EventAttachment
			for _, a := range msg.Attachments {
				ev.Attachments = append(ev.Attachments, a.Type)
			}
		default:
			ev.Kind = conversation.EventMessage
		}
	case m.Delivery != nil:
		ev.Kind = conversation.EventDelivery
		ev.MessageIDs = m.Delivery.MIDs
		ev.Watermark = m.Delivery.Watermark
		ev.Seq = m.Delivery.Seq
	case m.Postback != nil:
		ev.Kind = conversation.EventPostback
		ev.Text = m.Postback.Title
		ev.Payload = m.Postback.Payload
	case m.Read != nil:
		ev.Kind = conversation.EventRead
		ev.Watermark = m.Read.Watermark
		ev.Seq = m.Read.Seq
	case m.AccountLinking != nil:
		ev.Kind = conversation.EventAccountLinking
		ev.LinkStatus = m.AccountLinking.Status
		ev.AuthCode = m.AccountLinking.AuthorizationCode
	}

	return ev
}

// VerifySignature verifies an X-Hub-Signature-256 ("sha256=<hex>") or
// legacy X-Hub-Signature ("sha1=<hex>") header value.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	method, sigHex, ok := strings.Cut(signature, "=")
	if !ok || sigHex == "" {
		return false
	}

	var newHash func() hash.Hash
	switch method {
	case "sha256":
		newHash = sha256.New
	case "sha1":
		newHash = sha1.New
	default:
		return false
	}

	mac := hmac.New(newHash, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sigHex)))
}
