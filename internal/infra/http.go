package infra

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/http"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/viper"
)

func InitRoutes(server *fiber.App, status http.StatusSource) {
	server.Get("/health", http.Health(status))
}

// StartHTTP serves /health and /metrics when http.enabled is set. The
// returned function shuts the server down.
func StartHTTP(logger applog.AppLogger, wg *sync.WaitGroup, status http.StatusSource) func(context.Context) error {
	if !viper.GetBool("http.enabled") {
		return func(context.Context) error { return nil }
	}

	addr := viper.GetString("http.addr")
	app := fiber.New(fiber.Config{AppName: viper.GetString("service.name")})
	InitRoutes(app, status)
	InitMetrics(app)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			logger.Warn("http server error", "err", err)
		}
	}()
	logger.Info("HTTP server listening", "addr", addr)

	return func(ctx context.Context) error {
		if ctx == nil {
			c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return app.ShutdownWithContext(c)
		}
		return app.ShutdownWithContext(ctx)
	}
}
