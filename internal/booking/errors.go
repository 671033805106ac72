package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BackendError is the single failure shape of every booking call: either
// the request never completed (Status 0) or the backend answered with an
// unexpected status.
type BackendError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("booking: %s: %v", e.Op, e.Err)
	}
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("booking: %s: backend returned %d: %s", e.Op, e.Status, body)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transport reports whether the call failed before any HTTP response.
func (e *BackendError) Transport() bool {
	return e.Status == 0
}

// Message returns the body when the backend answered with a plain string
// (raw text or a JSON string literal), meant to be shown to the user.
func (e *BackendError) Message() (string, bool) {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return "", false
	}
	var s string
	if err := json.Unmarshal([]byte(body), &s); err == nil {
		return s, s != ""
	}
	if json.Valid([]byte(body)) {
		return "", false
	}
	return body, true
}

// AsBackendError unwraps err into a *BackendError.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
