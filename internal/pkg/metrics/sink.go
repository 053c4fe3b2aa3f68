package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type SinkMetrics struct {
	PublishAttemptsTotal prometheus.Counter
	PublishSuccessTotal  prometheus.Counter
	PublishErrorsTotal   *prometheus.CounterVec
	PublishLatencyMS     prometheus.Histogram
}

var (
	sinkOnce sync.Once
	sink     *SinkMetrics
)

func Sink() *SinkMetrics {
	sinkOnce.Do(func() {
		r := Registerer()
		sink = &SinkMetrics{
			PublishAttemptsTotal: promauto.With(r).NewCounter(prometheus.CounterOpts{
				Name: "failure_sink_publish_attempts_total",
				Help: "failed batch publish attempts (success + error)",
			}),
			PublishSuccessTotal: promauto.With(r).NewCounter(prometheus.CounterOpts{
				Name: "failure_sink_publish_success_total",
				Help: "failed batches published to the dead-letter topic",
			}),
			PublishErrorsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{Name: "failure_sink_publish_errors_total", Help: "failed batch publish errors by type"},
				[]string{"type"},
			),
			PublishLatencyMS: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
				Name:    "failure_sink_publish_latency_ms",
				Help:    "failed batch publish latency per attempt (ms)",
				Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
			}),
		}
	})
	return sink
}
