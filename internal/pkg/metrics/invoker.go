package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type InvokerMetrics struct {
	InvocationsTotal    *prometheus.CounterVec
	InvocationLatencyMS *prometheus.HistogramVec
}

var (
	invokerOnce sync.Once
	invoker     *InvokerMetrics
)

func Invoker() *InvokerMetrics {
	invokerOnce.Do(func() {
		r := Registerer()
		invoker = &InvokerMetrics{
			InvocationsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "handler_invocations_total",
					Help: "local handler invocations by function and outcome",
				},
				[]string{"function", "outcome"},
			),
			InvocationLatencyMS: promauto.With(r).NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "handler_invocation_latency_ms",
					Help:    "local handler invocation latency (ms)",
					Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
				},
				[]string{"function"},
			),
		}
	})
	return invoker
}
