// Package nlu adapts the Dialogflow ES detect-intent API to the relay's
// IntentResult model.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	dialogflow "google.golang.org/api/dialogflow/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wolfman30/messenger-booking-relay/internal/conversation"
	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

var tracer = otel.Tracer("relay.internal.nlu")

// Credentials identifies the service account used to call Dialogflow.
// Either File, or ClientEmail with PrivateKey.
type Credentials struct {
	File        string
	ClientEmail string
	PrivateKey  string
}

// CredentialsOption converts c into a client option.
func (c Credentials) CredentialsOption() (option.ClientOption, error) {
	if strings.TrimSpace(c.File) != "" {
		return option.WithCredentialsFile(c.File), nil
	}
	if strings.TrimSpace(c.ClientEmail) == "" || strings.TrimSpace(c.PrivateKey) == "" {
		return nil, errors.New("nlu: google client email and private key are required")
	}
	raw, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": c.ClientEmail,
		"private_key":  c.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("nlu: encode credentials: %w", err)
	}
	return option.WithCredentialsJSON(raw), nil
}

// Client calls Dialogflow detectIntent for one agent.
type Client struct {
	svc          *dialogflow.Service
	projectID    string
	languageCode string
	logger       *logging.Logger
}

// NewClient creates a Dialogflow client. opts carry credentials and, in
// tests, an alternate endpoint.
func NewClient(ctx context.Context, projectID, languageCode string, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("nlu: google project id is required")
	}
	if languageCode == "" {
		languageCode = "en"
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := dialogflow.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("nlu: failed to create dialogflow service: %w", err)
	}
	return &Client{svc: svc, projectID: projectID, languageCode: languageCode, logger: logger}, nil
}

// SessionPath is the agent session resource name for sessionID.
func (c *Client) SessionPath(sessionID string) string {
	return fmt.Sprintf("projects/%s/agent/sessions/%s", c.projectID, sessionID)
}

// DetectIntent sends one text query within sessionID.
func (c *Client) DetectIntent(ctx context.Context, sessionID, text string) (*conversation.IntentResult, error) {
	ctx, span := tracer.Start(ctx, "nlu.detect_intent")
	defer span.End()
	span.SetAttributes(attribute.String("nlu.session_id", sessionID))

	req := &dialogflow.GoogleCloudDialogflowV2DetectIntentRequest{
		QueryInput: &dialogflow.GoogleCloudDialogflowV2QueryInput{
			Text: &dialogflow.GoogleCloudDialogflowV2TextInput{
				Text:         text,
				LanguageCode: c.languageCode,
			},
		},
	}

	start := time.Now()
	resp, err := c.svc.Projects.Agent.Sessions.DetectIntent(c.SessionPath(sessionID), req).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detect intent failed")
		return nil, fmt.Errorf("nlu: detect intent: %w", err)
	}
	if resp.QueryResult == nil {
		err := errors.New("nlu: detect intent returned no query result")
		span.RecordError(err)
		return nil, err
	}

	result, err := convertQueryResult(resp.QueryResult)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("nlu.action", result.Action),
		attribute.Int("nlu.fragments", len(result.Fragments)),
	)
	c.logger.Debug("dialogflow intent detected",
		"session_id", sessionID,
		"action", result.Action,
		"response_id", resp.ResponseId,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func convertQueryResult(qr *dialogflow.GoogleCloudDialogflowV2QueryResult) (*conversation.IntentResult, error) {
	params, err := decodeParams(qr.Parameters)
	if err != nil {
		return nil, fmt.Errorf("nlu: decode parameters: %w", err)
	}

	result := &conversation.IntentResult{
		Action:          qr.Action,
		Parameters:      params,
		FulfillmentText: qr.FulfillmentText,
		QueryText:       qr.QueryText,
	}

	for _, oc := range qr.OutputContexts {
		if oc == nil {
			continue
		}
		cp, err := decodeParams(oc.Parameters)
		if err != nil {
			return nil, fmt.Errorf("nlu: decode context %s: %w", oc.Name, err)
		}
		result.Contexts = append(result.Contexts, conversation.Context{Name: oc.Name, Parameters: cp})
	}

	for _, m := range qr.FulfillmentMessages {
		if f, ok := convertMessage(m); ok {
			result.Fragments = append(result.Fragments, f)
		}
	}
	return result, nil
}

// convertMessage maps the message kinds the relay can render. Custom
// payloads and other rich kinds are skipped.
func convertMessage(m *dialogflow.GoogleCloudDialogflowV2IntentMessage) (fragment.Fragment, bool) {
	switch {
	case m == nil:
		return fragment.Fragment{}, false
	case m.Text != nil:
		return fragment.NewText(m.Text.Text...), true
	case m.QuickReplies != nil:
		return fragment.NewQuickReplies(m.QuickReplies.Title, m.QuickReplies.QuickReplies...), true
	case m.Image != nil:
		return fragment.NewImage(m.Image.ImageUri), true
	case m.Card != nil:
		card := fragment.Card{
			Title:    m.Card.Title,
			Subtitle: m.Card.Subtitle,
			ImageURI: m.Card.ImageUri,
		}
		for _, b := range m.Card.Buttons {
			if b == nil {
				continue
			}
			card.Buttons = append(card.Buttons, fragment.Button{Text: b.Text, Target: b.Postback})
		}
		return fragment.NewCard(card), true
	default:
		return fragment.Fragment{}, false
	}
}

// decodeParams keeps numbers as json.Number so large ids are not rounded.
func decodeParams(raw googleapi.RawMessage) (conversation.Params, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p conversation.Params
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}
