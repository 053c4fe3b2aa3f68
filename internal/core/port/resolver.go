package port

import (
	"context"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
)

// Callback completes an entrypoint call. Only the first call counts.
type Callback func(result any, err error)

// Entrypoint is a compiled handler in callback style. It may call done from
// any goroutine, before or after returning.
type Entrypoint func(ctx context.Context, event *entity.BatchEvent, lc *entity.InvocationContext, done Callback)

// HandlerResolver is the build collaborator: it compiles the handlers once and
// resolves a function name to its entrypoint.
type HandlerResolver interface {
	Compile(ctx context.Context) (*entity.CompileStats, error)
	Resolve(functionName string) (Entrypoint, error)
}
