package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type WatcherMetrics struct {
	CyclesTotal         *prometheus.CounterVec
	ConsecutiveErrors   prometheus.Gauge
	OpenIterators       prometheus.Gauge
	RecordsFetchedTotal *prometheus.CounterVec
	FetchErrorsTotal    *prometheus.CounterVec
	FetchLatencyMS      *prometheus.HistogramVec
}

var (
	watcherOnce sync.Once
	watcher     *WatcherMetrics
)

func Watcher() *WatcherMetrics {
	watcherOnce.Do(func() {
		r := Registerer()
		watcher = &WatcherMetrics{
			CyclesTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "watcher_cycles_total",
					Help: "poll cycles completed by outcome",
				},
				[]string{"outcome"},
			),
			ConsecutiveErrors: promauto.With(r).NewGauge(prometheus.GaugeOpts{
				Name: "watcher_consecutive_errors",
				Help: "current streak of failed poll cycles",
			}),
			OpenIterators: promauto.With(r).NewGauge(prometheus.GaugeOpts{
				Name: "watcher_open_iterators",
				Help: "streams whose shard iterator is not closed",
			}),
			RecordsFetchedTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "watcher_records_fetched_total",
					Help: "records fetched from the stream provider by stream",
				},
				[]string{"stream"},
			),
			FetchErrorsTotal: promauto.With(r).NewCounterVec(
				prometheus.CounterOpts{
					Name: "watcher_fetch_errors_total",
					Help: "record fetch errors by stream",
				},
				[]string{"stream"},
			),
			FetchLatencyMS: promauto.With(r).NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "watcher_fetch_latency_ms",
					Help:    "record fetch latency (ms)",
					Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
				},
				[]string{"stream"},
			),
		}
	})
	return watcher
}
