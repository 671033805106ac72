package messenger

// WebhookEvent is the top-level structure received from the Messenger webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one batched page entry.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging event. Exactly one of the pointer fields
// is set.
type Messaging struct {
	Sender         Party           `json:"sender"`
	Recipient      Party           `json:"recipient"`
	Timestamp      int64           `json:"timestamp"`
	OptIn          *OptIn          `json:"optin,omitempty"`
	Message        *Message        `json:"message,omitempty"`
	Delivery       *Delivery       `json:"delivery,omitempty"`
	Postback       *Postback       `json:"postback,omitempty"`
	Read           *Read           `json:"read,omitempty"`
	AccountLinking *AccountLinking `json:"account_linking,omitempty"`
}

// Party identifies a sender or recipient.
type Party struct {
	ID string `json:"id"`
}

// OptIn is sent when a user authenticates through the send-to-messenger plugin.
type OptIn struct {
	Ref string `json:"ref"`
}

// Message contains the message content. A message carries text or
// attachments, not both.
type Message struct {
	MID         string              `json:"mid"`
	Text        string              `json:"text,omitempty"`
	IsEcho      bool                `json:"is_echo,omitempty"`
	AppID       int64               `json:"app_id,omitempty"`
	Metadata    string              `json:"metadata,omitempty"`
	QuickReply  *InboundQuickReply  `json:"quick_reply,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

// InboundQuickReply is the payload of a tapped quick reply.
type InboundQuickReply struct {
	Payload string `json:"payload"`
}

// InboundAttachment is a user-sent attachment.
type InboundAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

// Delivery confirms that messages were delivered.
type Delivery struct {
	MIDs      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq"`
}

// Postback represents a postback button tap.
type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Read marks messages up to Watermark as read.
type Read struct {
	Watermark int64 `json:"watermark"`
	Seq       int64 `json:"seq"`
}

// AccountLinking reports a link or unlink of the user's account.
type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// Sender actions.
const (
	ActionTypingOn  = "typing_on"
	ActionTypingOff = "typing_off"
	ActionMarkSeen  = "mark_seen"
)

// SendRequest is the payload sent to the Send API. Either Message or
// SenderAction is set.
type SendRequest struct {
	Recipient    SendRecipient `json:"recipient"`
	Message      *SendMessage  `json:"message,omitempty"`
	SenderAction string        `json:"sender_action,omitempty"`
}

// SendRecipient identifies who to send the message to.
type SendRecipient struct {
	ID string `json:"id"`
}

// SendMessage is the message content for outbound messages.
type SendMessage struct {
	Text         string       `json:"text,omitempty"`
	Metadata     string       `json:"metadata,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
}

// QuickReply is an outbound quick reply option.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment is a media or template attachment.
type Attachment struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Payload is the attachment payload. URL is used by media attachments,
// the rest by templates.
type Payload struct {
	URL          string    `json:"url,omitempty"`
	TemplateType string    `json:"template_type,omitempty"`
	Text         string    `json:"text,omitempty"`
	Buttons      []Button  `json:"buttons,omitempty"`
	Elements     []Element `json:"elements,omitempty"`
}

// Element is one card of a generic template.
type Element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button types.
const (
	ButtonWebURL   = "web_url"
	ButtonPostback = "postback"
)

// Button is a template button.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// SendResponse is the response from the Send API.
type SendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *SendError `json:"error,omitempty"`
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}
