package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Core counts every order operation by outcome and tracks its latency.
type Core struct {
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
}

// NewCore registers the order-operation collectors with reg; a nil reg
// means the process-wide default registry.
func NewCore(service string, reg prometheus.Registerer) *Core {
	service = strings.ReplaceAll(service, "-", "_")
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: service,
		Name:      "order_operations_total",
		Help:      "Order core operations by outcome.",
	}, []string{"op", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marketplace",
		Subsystem: service,
		Name:      "order_operation_duration_ms",
		Help:      "Order core operation latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"op"})

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(ops, latency)
	return &Core{Operations: ops, LatencyMS: latency}
}

func (c *Core) Observe(op, outcome string, ms float64) {
	c.Operations.WithLabelValues(op, outcome).Inc()
	c.LatencyMS.WithLabelValues(op).Observe(ms)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
