package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
)

// RegistryBuilder derives the stream registry from a service definition.
type RegistryBuilder struct {
	log      applog.AppLogger
	resolver port.HandlerResolver
	invoker  *Invoker
	environ  func() []string
}

func NewRegistryBuilder(log applog.AppLogger, resolver port.HandlerResolver, invoker *Invoker) *RegistryBuilder {
	return &RegistryBuilder{
		log:      log,
		resolver: resolver,
		invoker:  invoker,
		environ:  os.Environ,
	}
}

// StreamNameFromArn returns the final path segment of a stream ARN.
func StreamNameFromArn(arn string) string {
	arn = strings.TrimSpace(arn)
	if i := strings.LastIndexByte(arn, '/'); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// Build compiles the handlers and maps every subscribed stream to its handlers
// in declaration order. Entry points are resolved lazily, so a function the
// build step cannot resolve fails when it is invoked, not here.
func (rb *RegistryBuilder) Build(ctx context.Context, svc *entity.ServiceDefinition) (entity.StreamRegistry, error) {
	if svc == nil {
		return nil, apperr.NewInvalidArgErr("service definition is required", nil)
	}

	stats, err := rb.resolver.Compile(ctx)
	if err != nil {
		return nil, apperr.NewInternalErr("failed to compile handlers", err)
	}
	if stats != nil {
		rb.log.Info("Compiled handlers", "functions", stats.Functions, "duration", stats.Duration)
	}

	processEnv := rb.environ()
	registry := entity.StreamRegistry{}
	for i := range svc.Functions {
		fn := svc.Functions[i]
		for _, sub := range fn.Events {
			if sub.Kind != entity.SubscriptionStream {
				continue
			}
			if sub.Disabled {
				rb.log.Debug("Skipping disabled stream subscription", "function", fn.Name, "arn", sub.Arn)
				continue
			}
			name := StreamNameFromArn(sub.Arn)
			if name == "" {
				return nil, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has a stream event without an arn", fn.Name), nil)
			}
			env := MergeEnvironment(svc.ProviderEnvironment, fn.Environment, processEnv)
			registry[name] = append(registry[name], rb.bind(&fn, env))
			rb.log.Debug("Registered stream handler", "stream", name, "function", fn.Name)
		}
	}
	return registry, nil
}

func (rb *RegistryBuilder) bind(fn *entity.FunctionDefinition, env map[string]string) entity.HandlerRef {
	return entity.HandlerRef{
		FunctionName: fn.Name,
		Environment:  env,
		Invoke: func(ctx context.Context, event *entity.BatchEvent) error {
			return rb.invoker.Invoke(ctx, fn, env, event)
		},
	}
}
