package conversation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
)

// IntentResult is what the NLU service returns for one utterance.
type IntentResult struct {
	Action          string
	Parameters      Params
	Contexts        []Context
	Fragments       []fragment.Fragment
	FulfillmentText string
	QueryText       string
}

// Context is NLU-maintained conversation state. Name is a hierarchical path
// such as projects/p/agent/sessions/s/contexts/confirm_room.
type Context struct {
	Name       string
	Parameters Params
}

// ShortName is the segment after the last "/".
func (c Context) ShortName() string {
	if i := strings.LastIndex(c.Name, "/"); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// FindContext returns the first context whose short name matches.
func FindContext(contexts []Context, shortName string) (Context, bool) {
	for _, c := range contexts {
		if c.ShortName() == shortName {
			return c, true
		}
	}
	return Context{}, false
}

// Params holds NLU parameter values as decoded from JSON.
type Params map[string]any

// Text returns the value of key as a string. Numbers are rendered in
// plain decimal form; anything else (missing, lists, structs) is "".
func (p Params) Text(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// primaryText is the first text line the NLU produced, falling back to the
// fulfillment text.
func (r *IntentResult) primaryText() string {
	for _, f := range r.Fragments {
		if line := f.FirstLine(); line != "" {
			return line
		}
	}
	return r.FulfillmentText
}
