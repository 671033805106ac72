package conversation

// Observer receives relay telemetry. The metrics package implements it.
type Observer interface {
	ObserveEvent(kind string)
	ObserveAction(action string)
	ObserveMissingContext(action, context string)
	ObserveNLU(status string, seconds float64)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string)                 {}
func (nopObserver) ObserveAction(string)                {}
func (nopObserver) ObserveMissingContext(string, string) {}
func (nopObserver) ObserveNLU(string, float64)          {}
