package metrics

// Provider is a pluggable metrics interface. The hub and sinks report
// through it; a real backend is optional.
type Provider interface {
	SetGauge(name string, value float64)
	IncCounter(name string, delta float64)
	Observe(name string, value float64)
}

type Noop struct{}

func (Noop) SetGauge(string, float64)   {}
func (Noop) IncCounter(string, float64) {}
func (Noop) Observe(string, float64)    {}
