package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prom struct {
	reg *prometheus.Registry
	// Gauges/Counters
	Subscribers    prometheus.Gauge
	Notifications  prometheus.Counter
	DeliveryErrors prometheus.Counter
	SinkDeliveries prometheus.Counter
	FanoutLatency  prometheus.Summary
}

func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg:            reg,
		Subscribers:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "hub_subscribers", Help: "Current number of registered subscribers"}),
		Notifications:  prometheus.NewCounter(prometheus.CounterOpts{Name: "notifications_total", Help: "Total state-change notifications fanned out"}),
		DeliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{Name: "delivery_errors_total", Help: "Total per-subscriber delivery failures"}),
		SinkDeliveries: prometheus.NewCounter(prometheus.CounterOpts{Name: "sink_deliveries_total", Help: "Total notifications observed by the metrics sink"}),
		FanoutLatency:  prometheus.NewSummary(prometheus.SummaryOpts{Name: "fanout_latency_ms", Help: "Latency of a full fan-out pass in ms"}),
	}
	reg.MustRegister(p.Subscribers, p.Notifications, p.DeliveryErrors, p.SinkDeliveries, p.FanoutLatency)
	return p
}

func (p *Prom) Handler() http.Handler { return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{}) }

// Implement Provider
func (p *Prom) SetGauge(name string, value float64) {
	switch name {
	case "hub_subscribers":
		p.Subscribers.Set(value)
	}
}

func (p *Prom) IncCounter(name string, delta float64) {
	switch name {
	case "notifications_total":
		p.Notifications.Add(delta)
	case "delivery_errors_total":
		p.DeliveryErrors.Add(delta)
	case "sink_deliveries_total":
		p.SinkDeliveries.Add(delta)
	}
}

// Observe supports selected summaries
func (p *Prom) Observe(name string, value float64) {
	switch name {
	case "fanout_latency_ms":
		p.FanoutLatency.Observe(value)
	default:
		// ignore unknown for now
	}
}
