package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessMetrics struct {
	Goroutines       prometheus.GaugeFunc
	StartTimeSeconds prometheus.Gauge
}

var (
	processOnce sync.Once
	process     *ProcessMetrics
)

// Process tracks goroutine count, which grows with in-flight or abandoned
// handler invocations.
func Process() *ProcessMetrics {
	processOnce.Do(func() {
		r := Registerer()
		process = &ProcessMetrics{
			Goroutines: promauto.With(r).NewGaugeFunc(prometheus.GaugeOpts{
				Name: "watcher_goroutines",
				Help: "Number of goroutines (runtime.NumGoroutine).",
			}, func() float64 {
				return float64(runtime.NumGoroutine())
			}),
			StartTimeSeconds: promauto.With(r).NewGauge(prometheus.GaugeOpts{
				Name: "watcher_start_time_seconds",
				Help: "Unix time the watcher process registered its metrics.",
			}),
		}
		process.StartTimeSeconds.Set(float64(time.Now().Unix()))
	})
	return process
}
