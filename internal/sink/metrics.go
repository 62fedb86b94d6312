package sink

import (
	"notifyhub/internal/hub"
	"notifyhub/internal/metrics"
)

// Metrics counts notifications it receives through a metrics.Provider.
type Metrics struct {
	id       string
	provider metrics.Provider
}

func NewMetrics(id string, p metrics.Provider) *Metrics {
	if id == "" {
		id = "metrics"
	}
	if p == nil {
		p = metrics.Noop{}
	}
	return &Metrics{id: id, provider: p}
}

func (s *Metrics) ID() string { return s.id }

func (s *Metrics) Notify(n hub.Notification) error {
	s.provider.IncCounter("sink_deliveries_total", 1)
	return nil
}
