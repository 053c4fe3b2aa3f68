package http

import (
	"github.com/gofiber/fiber/v3"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/usecase"
)

// StatusSource reports the watcher state.
type StatusSource interface {
	Status() usecase.Status
}

type healthBody struct {
	Status            string `json:"status"`
	Cycles            uint64 `json:"cycles"`
	ConsecutiveErrors int    `json:"consecutiveErrors"`
	OpenStreams       int    `json:"openStreams"`
}

// Health answers UP while the watcher polls cleanly, DEGRADED while cycles
// are failing and DOWN (503) when it is not running.
func Health(src StatusSource) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		st := src.Status()
		body := healthBody{
			Status:            "UP",
			Cycles:            st.Cycles,
			ConsecutiveErrors: st.ConsecutiveErrors,
			OpenStreams:       st.OpenStreams,
		}
		code := fiber.StatusOK
		switch {
		case !st.Running:
			body.Status = "DOWN"
			code = fiber.StatusServiceUnavailable
		case st.ConsecutiveErrors > 0:
			body.Status = "DEGRADED"
		}
		return ctx.Status(code).JSON(body)
	}
}
