package stats

// Noop is a Collector that discards all metrics. It is the default when no
// collector is configured, keeping metric calls unconditional at call sites.
type Noop struct{}

var _ Collector = Noop{}

func (Noop) IncCounter(string, int64)         {}
func (Noop) SetGauge(string, int64)           {}
func (Noop) ObserveHistogram(string, float64) {}
