package function

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
)

// Func is a synchronous in-process handler.
type Func func(ctx context.Context, event *entity.BatchEvent, lc *entity.InvocationContext) (any, error)

// StaticResolver serves handlers registered in-process by function name.
// Compile has nothing to build and only reports what is registered.
type StaticResolver struct {
	mu      sync.RWMutex
	entries map[string]port.Entrypoint
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{entries: map[string]port.Entrypoint{}}
}

// Register binds a callback-style entrypoint to name, replacing any previous one.
func (r *StaticResolver) Register(name string, entry port.Entrypoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry
}

// RegisterFunc binds a synchronous handler to name.
func (r *StaticResolver) RegisterFunc(name string, fn Func) {
	r.Register(name, func(ctx context.Context, event *entity.BatchEvent, lc *entity.InvocationContext, done port.Callback) {
		done(fn(ctx, event, lc))
	})
}

// Names returns the registered function names, sorted.
func (r *StaticResolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *StaticResolver) Compile(context.Context) (*entity.CompileStats, error) {
	start := time.Now()
	r.mu.RLock()
	n := len(r.entries)
	r.mu.RUnlock()
	return &entity.CompileStats{Functions: n, Duration: time.Since(start)}, nil
}

func (r *StaticResolver) Resolve(name string) (port.Entrypoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, apperr.NewNotFoundErr(fmt.Sprintf("no handler registered for function %q", name), nil)
	}
	return entry, nil
}
