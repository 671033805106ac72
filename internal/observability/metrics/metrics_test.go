package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.ObserveEvent("message")
	m.ObserveEvent("postback")
	m.ObserveAction("check_availability")
	m.ObserveMissingContext("confirm_booking", "confirm_room")
	m.ObserveNLU("ok", 0.2)
	m.ObserveNLU("error", 1.5)
	m.ObserveBackendCall("check_availability", "200", 0.1)
	m.ObserveSend("text", "ok")
	m.ObserveSend("text", "error")
	m.ObserveHTTP("POST", "/webhook", 200, 0.01)

	snap, err := TakeSnapshot(reg)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		Events:         2,
		NLUErrors:      1,
		SendErrors:     1,
		BackendCalls:   1,
		MissingContext: 1,
	}, snap)
}

func TestRelayMetricsNilSafe(t *testing.T) {
	var m *RelayMetrics
	m.ObserveEvent("message")
	m.ObserveAction("x")
	m.ObserveMissingContext("x", "y")
	m.ObserveNLU("ok", 0.1)
	m.ObserveBackendCall("op", "200", 0.1)
	m.ObserveSend("text", "ok")
	m.ObserveHTTP("GET", "/", 200, 0.1)
}

type stubGatherer struct {
	families []*dto.MetricFamily
}

func (s stubGatherer) Gather() ([]*dto.MetricFamily, error) {
	return s.families, nil
}

func TestTakeSnapshotIgnoresNonCounters(t *testing.T) {
	name := "relay_webhook_events_total"
	gaugeType := dto.MetricType_GAUGE
	value := 5.0
	snap, err := TakeSnapshot(stubGatherer{families: []*dto.MetricFamily{{
		Name:   &name,
		Type:   &gaugeType,
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: &value}}},
	}}})
	require.NoError(t, err)
	assert.Zero(t, snap.Events)
}
