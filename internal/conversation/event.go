package conversation

import "time"

// EventKind classifies an inbound channel event.
type EventKind string

const (
	EventOptIn          EventKind = "optin"
	EventMessage        EventKind = "message"
	EventEcho           EventKind = "echo"
	EventQuickReply     EventKind = "quick_reply"
	EventAttachment     EventKind = "attachment"
	EventDelivery       EventKind = "delivery"
	EventPostback       EventKind = "postback"
	EventRead           EventKind = "read"
	EventAccountLinking EventKind = "account_linking"
	EventUnknown        EventKind = "unknown"
)

// Event is one inbound messaging event, normalized from the channel's
// webhook payload.
type Event struct {
	Kind        EventKind
	SenderID    string
	RecipientID string
	Timestamp   time.Time

	// message / echo / quick reply / attachment
	MessageID   string
	Text        string
	Payload     string
	Attachments []string
	AppID       int64
	Metadata    string

	// optin
	Ref string

	// delivery / read
	MessageIDs []string
	Watermark  int64
	Seq        int64

	// account linking
	LinkStatus string
	AuthCode   string
}
