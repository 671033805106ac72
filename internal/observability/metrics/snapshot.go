package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a small roll-up of relay counters for the health endpoint.
type Snapshot struct {
	Events         float64 `json:"events"`
	NLUErrors      float64 `json:"nlu_errors"`
	SendErrors     float64 `json:"send_errors"`
	BackendCalls   float64 `json:"backend_calls"`
	MissingContext float64 `json:"missing_context"`
}

// TakeSnapshot sums the relay counters found in gatherer.
func TakeSnapshot(gatherer prometheus.Gatherer) (Snapshot, error) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	for _, mf := range mfs {
		switch mf.GetName() {
		case "relay_webhook_events_total":
			s.Events = sumCounter(mf, "", "")
		case "relay_nlu_requests_total":
			s.NLUErrors = sumCounter(mf, "status", "error")
		case "relay_messenger_sends_total":
			s.SendErrors = sumCounter(mf, "status", "error")
		case "relay_booking_requests_total":
			s.BackendCalls = sumCounter(mf, "", "")
		case "relay_dispatch_missing_context_total":
			s.MissingContext = sumCounter(mf, "", "")
		}
	}
	return s, nil
}

// sumCounter adds every counter sample, or only those carrying label=value
// when label is set.
func sumCounter(mf *dto.MetricFamily, label, value string) float64 {
	if mf.GetType() != dto.MetricType_COUNTER {
		return 0
	}
	var total float64
	for _, metric := range mf.GetMetric() {
		if label != "" && !hasLabel(metric, label, value) {
			continue
		}
		total += metric.GetCounter().GetValue()
	}
	return total
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
