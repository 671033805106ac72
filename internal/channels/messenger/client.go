package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second
)

var tracer = otel.Tracer("relay.internal.channels.messenger")

// Client sends messages via the Messenger Send API. Calls share one token
// bucket and are never retried.
type Client struct {
	pageAccessToken string
	graphAPIBase    string
	httpClient      *http.Client
	limiter         *rate.Limiter
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithGraphAPIBase overrides the Graph API base URL.
func WithGraphAPIBase(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.graphAPIBase = base
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit throttles sends to perSecond with the given burst.
// A non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new Send API client.
func NewClient(pageAccessToken string, opts ...ClientOption) *Client {
	c := &Client{
		pageAccessToken: pageAccessToken,
		graphAPIBase:    defaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendTextMessage sends a plain text message.
func (c *Client) SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message:   &SendMessage{Text: text},
	})
}

// SendQuickReplies sends text with quick reply options.
func (c *Client) SendQuickReplies(ctx context.Context, recipientID, text string, replies []QuickReply) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message:   &SendMessage{Text: text, QuickReplies: replies},
	})
}

// SendImage sends an image attachment by URL.
func (c *Client) SendImage(ctx context.Context, recipientID, imageURL string) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{Attachment: &Attachment{
			Type:    "image",
			Payload: Payload{URL: imageURL},
		}},
	})
}

// SendGenericTemplate sends a card carousel.
func (c *Client) SendGenericTemplate(ctx context.Context, recipientID string, elements []Element) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{Attachment: &Attachment{
			Type:    "template",
			Payload: Payload{TemplateType: "generic", Elements: elements},
		}},
	})
}

// SendButtonMessage sends a button template message.
func (c *Client) SendButtonMessage(ctx context.Context, recipientID, text string, buttons []Button) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{Attachment: &Attachment{
			Type:    "template",
			Payload: Payload{TemplateType: "button", Text: text, Buttons: buttons},
		}},
	})
}

// SendAction sends a sender action such as typing_on or mark_seen.
func (c *Client) SendAction(ctx context.Context, recipientID, action string) (*SendResponse, error) {
	return c.Send(ctx, SendRequest{
		Recipient:    SendRecipient{ID: recipientID},
		SenderAction: action,
	})
}

// Send posts req to the Send API.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	ctx, span := tracer.Start(ctx, "messenger.send")
	defer span.End()
	span.SetAttributes(attribute.String("messenger.recipient_id", req.Recipient.ID))
	if req.SenderAction != "" {
		span.SetAttributes(attribute.String("messenger.sender_action", req.SenderAction))
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("messenger: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.graphAPIBase, url.QueryEscape(c.pageAccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("messenger: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messenger: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messenger: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("messenger: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("messenger: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("messenger: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return &sendResp, nil
}
