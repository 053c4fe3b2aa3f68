package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	regMu sync.RWMutex
	reg   prometheus.Registerer = prometheus.DefaultRegisterer
	gat   prometheus.Gatherer   = prometheus.DefaultGatherer
)

// Registerer is where metric groups register on first use.
func Registerer() prometheus.Registerer {
	regMu.RLock()
	defer regMu.RUnlock()
	return reg
}

func Gatherer() prometheus.Gatherer {
	regMu.RLock()
	defer regMu.RUnlock()
	return gat
}

// UseRegistry points groups that have not been initialised yet at r.
func UseRegistry(r *prometheus.Registry) {
	if r == nil {
		return
	}
	regMu.Lock()
	reg, gat = r, r
	regMu.Unlock()
}

// Preload initialises every group so their series exist before the first poll cycle.
func Preload() {
	_ = App()
	_ = Watcher()
	_ = Invoker()
	_ = Sink()
	_ = Process()
}
