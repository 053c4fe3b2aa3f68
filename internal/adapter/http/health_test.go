package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/usecase"
	"github.com/stretchr/testify/require"
)

type staticStatus usecase.Status

func (s staticStatus) Status() usecase.Status { return usecase.Status(s) }

func TestHealth(t *testing.T) {
	cases := []struct {
		name       string
		status     usecase.Status
		wantCode   int
		wantStatus string
	}{
		{name: "up", status: usecase.Status{Running: true, Cycles: 3, OpenStreams: 2}, wantCode: 200, wantStatus: "UP"},
		{name: "degraded", status: usecase.Status{Running: true, Cycles: 3, ConsecutiveErrors: 2}, wantCode: 200, wantStatus: "DEGRADED"},
		{name: "down", status: usecase.Status{}, wantCode: 503, wantStatus: "DOWN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", Health(staticStatus(tc.status)))

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.wantCode, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body healthBody
			require.NoError(t, json.Unmarshal(raw, &body))
			require.Equal(t, tc.wantStatus, body.Status)
			require.Equal(t, tc.status.Cycles, body.Cycles)
			require.Equal(t, tc.status.ConsecutiveErrors, body.ConsecutiveErrors)
		})
	}
}
