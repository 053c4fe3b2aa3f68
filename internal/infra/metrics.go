package infra

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	imetrics "github.com/pancudaniel7/offline-stream-watcher/internal/pkg/metrics"
)

var promRegistry *prometheus.Registry

// InitMetricsRegistry installs a dedicated registry for the metric groups.
// It must run before any group is first used.
func InitMetricsRegistry() *prometheus.Registry {
	if promRegistry == nil {
		promRegistry = prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector())
		promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		svc := viper.GetString("service.name")
		inst := viper.GetString("service.instance")
		bi := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "service_build_info", Help: "build info", ConstLabels: prometheus.Labels{"service": svc, "instance": inst}}, []string{"version", "rev"})
		promRegistry.MustRegister(bi)
		bi.WithLabelValues("dev", "unknown").Set(1)
		imetrics.UseRegistry(promRegistry)
		imetrics.Preload()
	}
	return promRegistry
}

func InitMetrics(app *fiber.App) {
	if app == nil {
		return
	}
	reg := InitMetricsRegistry()
	h := promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(imetrics.Gatherer(), promhttp.HandlerOpts{}))
	app.Get("/metrics", adaptor.HTTPHandler(h))
}
