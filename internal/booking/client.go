package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

const (
	defaultBaseURL = "https://nexus-hotel-bot-backend.herokuapp.com"
	defaultTimeout = 15 * time.Second
)

var tracer = otel.Tracer("relay.internal.booking")

// Observer receives one callback per backend call. status is the HTTP
// status code, or "error" for transport failures.
type Observer interface {
	ObserveBackendCall(op, status string, seconds float64)
}

// Client wraps the booking backend REST API. Calls are never retried.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	logger     *logging.Logger
	observer   Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver registers a call observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a booking backend client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// CheckAvailability returns free rooms per type for a YYYY-MM-DD date.
func (c *Client) CheckAvailability(ctx context.Context, date string) (Availability, error) {
	const op = "check_availability"
	status, body, err := c.do(ctx, op, http.MethodPost, "/isAvailable", map[string]string{"date": date})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &BackendError{Op: op, Status: status, Body: string(body)}
	}
	var out Availability
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &BackendError{Op: op, Status: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

// ListBookings returns the user's bookings. An empty slice means none.
func (c *Client) ListBookings(ctx context.Context, userID string) ([]Record, error) {
	const op = "list_bookings"
	path := "/booking/info/id/" + url.PathEscape(userID)
	status, body, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &BackendError{Op: op, Status: status, Body: string(body)}
	}
	records := []Record{}
	if len(bytes.TrimSpace(body)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &BackendError{Op: op, Status: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// CreateBooking creates a booking and returns its token. Only 201 counts as
// success; a 400 carries the backend's rejection reason in the error body.
func (c *Client) CreateBooking(ctx context.Context, req Request) (string, error) {
	const op = "create_booking"
	status, body, err := c.do(ctx, op, http.MethodPost, "/booking", req)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", &BackendError{Op: op, Status: status, Body: string(body)}
	}
	var resp createResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &BackendError{Op: op, Status: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.Token, nil
}

// CancelBooking cancels the booking identified by token.
func (c *Client) CancelBooking(ctx context.Context, token string) (bool, error) {
	const op = "cancel_booking"
	path := "/booking/cancellation/" + url.PathEscape(token)
	status, body, err := c.do(ctx, op, http.MethodDelete, path, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, &BackendError{Op: op, Status: status, Body: string(body)}
	}
	return true, nil
}

// do performs one request. Transport failures come back as *BackendError
// with Status 0; any HTTP response is returned for the caller to judge.
func (c *Client) do(ctx context.Context, op, method, path string, in any) (int, []byte, error) {
	ctx, span := tracer.Start(ctx, "booking."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("booking.path", path),
	)

	start := time.Now()
	status, body, err := c.roundTrip(ctx, method, path, in)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		c.observe(op, "error", elapsed)
		c.logger.Warn("booking backend call failed", "op", op, "path", path, "error", err)
		return 0, nil, &BackendError{Op: op, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", status))
	c.observe(op, strconv.Itoa(status), elapsed)
	if status < 200 || status > 299 {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("booking backend non-2xx response", "op", op, "status", status, "path", path, "body", msg)
	}
	return status, body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var bodyReader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) observe(op, status string, seconds float64) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(op, status, seconds)
	}
}
