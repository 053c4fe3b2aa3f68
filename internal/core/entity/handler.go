package entity

import (
	"context"
	"sort"
	"time"
)

// HandlerFunc runs one local function against a batch.
type HandlerFunc func(ctx context.Context, event *BatchEvent) error

// HandlerRef binds a callable to the function it came from and the merged
// environment it runs with.
type HandlerRef struct {
	FunctionName string
	Environment  map[string]string
	Invoke       HandlerFunc
}

// StreamRegistry maps stream name to its subscribed handlers in subscription
// order. It is built once per run and never mutated afterwards.
type StreamRegistry map[string][]HandlerRef

// Streams returns the registry keys, sorted.
func (r StreamRegistry) Streams() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InvocationContext is the identity handed to an entrypoint alongside the
// event. There is no resource limit enforcement behind it.
type InvocationContext struct {
	FunctionName       string
	FunctionVersion    string
	InvokedFunctionArn string
	AwsRequestID       string
	LogGroupName       string
	LogStreamName      string
	Deadline           time.Time
	Environment        map[string]string
}
