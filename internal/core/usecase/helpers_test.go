package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
)

type testLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *testLog) add(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	b.WriteString(level + ":" + msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	l.entries = append(l.entries, b.String())
}

func (l *testLog) Info(msg string, args ...any)  { l.add("INFO", msg, args...) }
func (l *testLog) Warn(msg string, args ...any)  { l.add("WARN", msg, args...) }
func (l *testLog) Error(msg string, args ...any) { l.add("ERROR", msg, args...) }
func (l *testLog) Debug(msg string, args ...any) { l.add("DEBUG", msg, args...) }
func (l *testLog) Trace(msg string, args ...any) { l.add("TRACE", msg, args...) }
func (l *testLog) Fatal(msg string, args ...any) { l.add("FATAL", msg, args...) }

func (l *testLog) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.HasPrefix(e, level+":") && strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

type fakeProvider struct {
	mu          sync.Mutex
	shards      map[string][]entity.Shard
	describeErr map[string]error
	iteratorErr map[string]error
	fetch       func(cursor string) (*entity.FetchResult, error)

	policies     []entity.IteratorPolicy
	shardIDs     map[string]string
	fetchCursors []string
}

func (p *fakeProvider) DescribeStream(_ context.Context, stream string) ([]entity.Shard, error) {
	if err := p.describeErr[stream]; err != nil {
		return nil, err
	}
	if s, ok := p.shards[stream]; ok {
		return s, nil
	}
	return []entity.Shard{{ID: "shardId-000000000000"}}, nil
}

func (p *fakeProvider) GetShardIterator(_ context.Context, shardID string, policy entity.IteratorPolicy, stream string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.iteratorErr[stream]; err != nil {
		return "", err
	}
	p.policies = append(p.policies, policy)
	if p.shardIDs == nil {
		p.shardIDs = map[string]string{}
	}
	p.shardIDs[stream] = shardID
	return "it-" + stream, nil
}

func (p *fakeProvider) GetRecords(_ context.Context, cursor string, _ int64) (*entity.FetchResult, error) {
	p.mu.Lock()
	p.fetchCursors = append(p.fetchCursors, cursor)
	fetch := p.fetch
	p.mu.Unlock()
	if fetch == nil {
		next := cursor
		return &entity.FetchResult{NextCursor: &next}, nil
	}
	return fetch(cursor)
}

func (p *fakeProvider) fetchedCursors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fetchCursors...)
}

type fakeResolver struct {
	mu         sync.Mutex
	entries    map[string]port.Entrypoint
	compileErr error
	compiled   int
}

func (r *fakeResolver) Compile(context.Context) (*entity.CompileStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiled++
	if r.compileErr != nil {
		return nil, r.compileErr
	}
	return &entity.CompileStats{Functions: len(r.entries)}, nil
}

func (r *fakeResolver) Resolve(name string) (port.Entrypoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("no compiled handler named %q", name)
	}
	return e, nil
}

// syncEntry adapts a plain function into a callback entrypoint.
func syncEntry(fn func(ev *entity.BatchEvent, lc *entity.InvocationContext) error) port.Entrypoint {
	return func(_ context.Context, ev *entity.BatchEvent, lc *entity.InvocationContext, done port.Callback) {
		done(nil, fn(ev, lc))
	}
}

// recorder captures the payloads each function received.
type recorder struct {
	mu    sync.Mutex
	calls map[string][][]string
}

func newRecorder() *recorder { return &recorder{calls: map[string][][]string{}} }

func (r *recorder) entry(name string, err func(call int) error) port.Entrypoint {
	return syncEntry(func(ev *entity.BatchEvent, _ *entity.InvocationContext) error {
		r.mu.Lock()
		payloads := make([]string, 0, len(ev.Records))
		for _, rec := range ev.Records {
			payloads = append(payloads, string(rec.Data))
		}
		r.calls[name] = append(r.calls[name], payloads)
		call := len(r.calls[name])
		r.mu.Unlock()
		if err != nil {
			return err(call)
		}
		return nil
	})
}

func (r *recorder) get(name string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls[name]...)
}

func streamFn(name string, arns ...string) entity.FunctionDefinition {
	fn := entity.FunctionDefinition{Name: name}
	for _, arn := range arns {
		fn.Events = append(fn.Events, entity.Subscription{Kind: entity.SubscriptionStream, Arn: arn})
	}
	return fn
}

func arn(stream string) string {
	return "arn:aws:kinesis:us-east-1:000000000000:stream/" + stream
}

func records(payloads ...string) []entity.Record {
	out := make([]entity.Record, 0, len(payloads))
	for i, p := range payloads {
		out = append(out, entity.Record{Data: []byte(p), SequenceNumber: fmt.Sprintf("%d", i+1)})
	}
	return out
}

func strPtr(s string) *string { return &s }
