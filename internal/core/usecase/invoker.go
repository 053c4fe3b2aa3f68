package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/offline-stream-watcher/internal/pkg/metrics"
)

const (
	defaultFunctionVersion = "$LATEST"
	defaultAccountID       = "000000000000"
	defaultRegion          = "us-east-1"
)

// Invoker runs a resolved entrypoint as a single blocking call. The callback
// fires at most once; later completions are logged and dropped.
//
// A zero timeout means the call waits until the entrypoint completes or ctx is
// done. A handler that never completes blocks the whole cycle in that case.
type Invoker struct {
	log                  applog.AppLogger
	resolver             port.HandlerResolver
	timeout              time.Duration
	honorFunctionTimeout bool
	region               string
	newRequestID         func() string
	now                  func() time.Time
}

// InvokerOption customizes an Invoker.
type InvokerOption func(*Invoker)

// WithInvocationTimeout bounds every invocation. Zero disables the bound.
func WithInvocationTimeout(d time.Duration) InvokerOption {
	return func(i *Invoker) { i.timeout = d }
}

// WithFunctionTimeouts lets a function's declared timeout apply when no global
// timeout is set.
func WithFunctionTimeouts(enabled bool) InvokerOption {
	return func(i *Invoker) { i.honorFunctionTimeout = enabled }
}

// WithRegion sets the region used in invoked function ARNs.
func WithRegion(region string) InvokerOption {
	return func(i *Invoker) {
		if region != "" {
			i.region = region
		}
	}
}

func NewInvoker(log applog.AppLogger, resolver port.HandlerResolver, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		log:          log,
		resolver:     resolver,
		region:       defaultRegion,
		newRequestID: uuid.NewString,
		now:          time.Now,
	}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

type invocationOutcome struct {
	result any
	err    error
}

// Invoke resolves fn's entrypoint and runs it with event. env is handed to the
// entrypoint by value through the invocation context.
func (inv *Invoker) Invoke(ctx context.Context, fn *entity.FunctionDefinition, env map[string]string, event *entity.BatchEvent) error {
	start := inv.now()
	err := inv.invoke(ctx, fn, env, event)

	outcome := imetrics.OutcomeSuccess
	if err != nil {
		outcome = imetrics.OutcomeFailure
	}
	imetrics.Invoker().InvocationsTotal.WithLabelValues(fn.Name, outcome).Inc()
	imetrics.Invoker().InvocationLatencyMS.WithLabelValues(fn.Name).Observe(float64(time.Since(start).Milliseconds()))
	return err
}

func (inv *Invoker) invoke(ctx context.Context, fn *entity.FunctionDefinition, env map[string]string, event *entity.BatchEvent) error {
	entry, err := inv.resolver.Resolve(fn.Name)
	if err != nil {
		return apperr.NewHandlerInvocationErr(fn.Name, fmt.Sprintf("failed to resolve entrypoint for function %q", fn.Name), err)
	}
	if entry == nil {
		return apperr.NewHandlerInvocationErr(fn.Name, fmt.Sprintf("no entrypoint for function %q", fn.Name), nil)
	}

	callCtx := ctx
	timeout := inv.timeoutFor(fn)
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	lc := inv.newInvocationContext(callCtx, fn, env)

	results := make(chan invocationOutcome, 1)
	var once sync.Once
	done := func(result any, err error) {
		fired := false
		once.Do(func() {
			fired = true
			results <- invocationOutcome{result: result, err: err}
		})
		if !fired {
			inv.log.Warn("Handler completed more than once; ignoring", "function", fn.Name, "request_id", lc.AwsRequestID)
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done(nil, fmt.Errorf("handler panicked: %v", r))
			}
		}()
		entry(callCtx, event, lc, done)
	}()

	select {
	case out := <-results:
		if out.err != nil {
			return apperr.NewHandlerInvocationErr(fn.Name, fmt.Sprintf("function %q failed", fn.Name), out.err)
		}
		inv.log.Trace("Handler completed", "function", fn.Name, "request_id", lc.AwsRequestID, "records", len(event.Records))
		return nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return apperr.NewHandlerInvocationErr(fn.Name, fmt.Sprintf("function %q timed out after %s", fn.Name, timeout), callCtx.Err())
		}
		return apperr.NewHandlerInvocationErr(fn.Name, fmt.Sprintf("function %q abandoned", fn.Name), callCtx.Err())
	}
}

func (inv *Invoker) timeoutFor(fn *entity.FunctionDefinition) time.Duration {
	if inv.timeout > 0 {
		return inv.timeout
	}
	if inv.honorFunctionTimeout && fn.Timeout > 0 {
		return fn.Timeout
	}
	return 0
}

func (inv *Invoker) newInvocationContext(ctx context.Context, fn *entity.FunctionDefinition, env map[string]string) *entity.InvocationContext {
	requestID := inv.newRequestID()
	lc := &entity.InvocationContext{
		FunctionName:       fn.Name,
		FunctionVersion:    defaultFunctionVersion,
		InvokedFunctionArn: fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", inv.region, defaultAccountID, fn.Name),
		AwsRequestID:       requestID,
		LogGroupName:       "/aws/lambda/" + fn.Name,
		LogStreamName:      inv.now().UTC().Format("2006/01/02") + "/[" + defaultFunctionVersion + "]" + strings.ReplaceAll(requestID, "-", ""),
		Environment:        copyEnv(env),
	}
	if dl, ok := ctx.Deadline(); ok {
		lc.Deadline = dl
	}
	return lc
}
