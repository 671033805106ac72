package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

type httpObservation struct {
	method, route string
	code          int
}

type recordingHTTPObserver struct {
	seen []httpObservation
}

func (o *recordingHTTPObserver) ObserveHTTP(method, route string, code int, _ float64) {
	o.seen = append(o.seen, httpObservation{method, route, code})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	obs := &recordingHTTPObserver{}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger, obs))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	require.Len(t, obs.seen, 1)
	assert.Equal(t, httpObservation{"GET", "/items/{id}", http.StatusAccepted}, obs.seen[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(http.StatusAccepted), entry["status"])
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	h := RequestLogger(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
