package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/offline-stream-watcher/internal/pkg/metrics"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/pattern"
	"go.uber.org/multierr"
)

const (
	// MaxConsecutiveErrors is the number of failed cycles in a row tolerated
	// before the watcher aborts. The cycle that exceeds it is fatal.
	MaxConsecutiveErrors = 10
	// RecordsPerFetch caps a single GetRecords call.
	RecordsPerFetch = 100
)

// Status is a point-in-time view of a running watcher, safe to read from any
// goroutine.
type Status struct {
	Running           bool
	Cycles            uint64
	ConsecutiveErrors int
	OpenStreams       int
}

// StreamWatcher polls every subscribed stream on a fixed interval and feeds
// new records to the local handlers bound to it.
//
// One cycle fetches all streams concurrently, then invokes every handler of
// every stream concurrently, then advances the cursors. Cursors advance even
// when handlers fail, so a failed batch is never replayed. More than
// MaxConsecutiveErrors failed cycles in a row end the run with a
// ThresholdExceededErr.
type StreamWatcher struct {
	log      applog.AppLogger
	cfg      Config
	provider port.StreamProvider
	builder  *RegistryBuilder
	service  *entity.ServiceDefinition
	sink     port.FailureSink

	maxConsecutiveErrors int
	sleep                func(context.Context, time.Duration) error

	registry          entity.StreamRegistry
	iterators         *IteratorManager
	consecutiveErrors int
	cycle             uint64

	running     atomic.Bool
	cycles      atomic.Uint64
	streak      atomic.Int64
	openStreams atomic.Int64
}

// NewStreamWatcher validates cfg and wires the watcher. sink may be nil.
func NewStreamWatcher(log applog.AppLogger, cfg *Config, v *validator.Validate, provider port.StreamProvider, builder *RegistryBuilder, service *entity.ServiceDefinition, sink port.FailureSink) (*StreamWatcher, error) {
	if cfg == nil {
		return nil, apperr.NewInvalidArgErr("watcher config is required", nil)
	}
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid watcher config", err)
	}
	if provider == nil || builder == nil || service == nil {
		return nil, apperr.NewInvalidArgErr("provider, registry builder and service definition are required", nil)
	}
	return &StreamWatcher{
		log:                  log,
		cfg:                  *cfg,
		provider:             provider,
		builder:              builder,
		service:              service,
		sink:                 sink,
		maxConsecutiveErrors: MaxConsecutiveErrors,
		sleep:                pattern.Sleep,
		iterators:            NewIteratorManager(log, provider),
	}, nil
}

// Run blocks until the watcher aborts or ctx is done. It returns nil
// immediately when the watcher is disabled, a startup error when the registry
// or the iterators cannot be set up, a ThresholdExceededErr after too many
// failed cycles, or ctx.Err() on cancellation.
func (w *StreamWatcher) Run(ctx context.Context) error {
	if !w.cfg.Enabled {
		w.log.Info("Stream watcher disabled; not polling")
		return nil
	}
	w.log.Info("Enabling stream poller", "interval_ms", w.cfg.IntervalMillis)

	if err := w.start(ctx); err != nil {
		return err
	}
	w.running.Store(true)
	defer w.running.Store(false)

	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("Stream watcher stopped", "cycles", w.cycle)
			return err
		}
		if err := w.runCycle(ctx); err != nil {
			return err
		}
		if err := w.sleep(ctx, w.cfg.Interval()); err != nil {
			w.log.Info("Stream watcher stopped", "cycles", w.cycle)
			return err
		}
	}
}

func (w *StreamWatcher) start(ctx context.Context) error {
	registry, err := w.builder.Build(ctx, w.service)
	if err != nil {
		return err
	}
	w.registry = registry
	if len(registry) == 0 {
		w.log.Warn("No function subscribes to a stream; nothing will be polled")
	}
	if err := w.iterators.Init(ctx, registry.Streams()); err != nil {
		w.log.Error("Failed to initialize shard iterators", "err", err)
		return err
	}
	w.openStreams.Store(int64(len(w.iterators.Open())))
	return nil
}

type handlerFailure struct {
	stream   string
	function string
	err      error
}

// runCycle performs one poll/invoke/advance round. It returns an error only
// when the run must end.
func (w *StreamWatcher) runCycle(ctx context.Context) error {
	w.cycle++
	streams := w.iterators.Open()
	w.log.Debug("Polling streams", "cycle", w.cycle, "streams", streams)

	results, err := w.pollStreams(ctx, streams)
	var failures []handlerFailure
	if err == nil {
		failures, err = w.runHandlers(ctx, results)
	}
	w.iterators.Advance(results)
	w.openStreams.Store(int64(len(w.iterators.Open())))
	w.cycles.Store(w.cycle)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		w.consecutiveErrors++
		w.streak.Store(int64(w.consecutiveErrors))
		imetrics.Watcher().CyclesTotal.WithLabelValues(imetrics.OutcomeFailure).Inc()
		imetrics.Watcher().ConsecutiveErrors.Set(float64(w.consecutiveErrors))
		w.publishFailures(ctx, results, failures)

		if w.consecutiveErrors > w.maxConsecutiveErrors {
			w.log.Error(fmt.Sprintf("Exceeded maximum number of consecutive errors (%d)", w.maxConsecutiveErrors), "cycle", w.cycle, "err", err)
			imetrics.App().ErrorsTotal.WithLabelValues(imetrics.ComponentWatcher, "threshold_exceeded").Inc()
			return apperr.NewThresholdExceededErr(w.maxConsecutiveErrors, err)
		}
		w.log.Warn("Stream cycle failed; continuing", "cycle", w.cycle, "consecutive_errors", w.consecutiveErrors, "err", err)
		imetrics.App().WarningsTotal.WithLabelValues(imetrics.ComponentWatcher, apperr.CodeOf(err)).Inc()
		return nil
	}

	w.consecutiveErrors = 0
	w.streak.Store(0)
	imetrics.Watcher().CyclesTotal.WithLabelValues(imetrics.OutcomeSuccess).Inc()
	imetrics.Watcher().ConsecutiveErrors.Set(0)
	return nil
}

// pollStreams fetches the next batch of every stream concurrently and waits
// for all of them. Successful results are returned even when another stream
// failed so their cursors still advance.
func (w *StreamWatcher) pollStreams(ctx context.Context, streams []string) (map[string]*entity.FetchResult, error) {
	type fetchOutcome struct {
		res *entity.FetchResult
		err error
	}
	outcomes := make([]fetchOutcome, len(streams))

	var wg sync.WaitGroup
	for i, name := range streams {
		cur, _ := w.iterators.Cursor(name)
		wg.Add(1)
		go func(i int, name string, cursor string) {
			defer wg.Done()
			start := time.Now()
			res, err := w.provider.GetRecords(ctx, cursor, RecordsPerFetch)
			imetrics.Watcher().FetchLatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
			if err != nil {
				imetrics.Watcher().FetchErrorsTotal.WithLabelValues(name).Inc()
				outcomes[i].err = apperr.NewFetchErr(name, fmt.Sprintf("failed to fetch records for stream %q", name), err)
				return
			}
			if res == nil {
				res = &entity.FetchResult{NextCursor: &cursor}
			}
			imetrics.Watcher().RecordsFetchedTotal.WithLabelValues(name).Add(float64(len(res.Records)))
			outcomes[i].res = res
		}(i, name, cur.Token)
	}
	wg.Wait()

	results := make(map[string]*entity.FetchResult, len(streams))
	var errs error
	for i, name := range streams {
		if outcomes[i].err != nil {
			errs = multierr.Append(errs, outcomes[i].err)
			continue
		}
		results[name] = outcomes[i].res
		w.log.Debug("Fetched records", "stream", name, "records", len(outcomes[i].res.Records), "millis_behind", outcomes[i].res.MillisBehindLatest)
	}
	return results, errs
}

// runHandlers invokes every handler of every stream with records and waits
// for all of them to settle.
func (w *StreamWatcher) runHandlers(ctx context.Context, results map[string]*entity.FetchResult) ([]handlerFailure, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []handlerFailure
	)
	for name, res := range results {
		cur, _ := w.iterators.Cursor(name)
		for _, ref := range w.registry[name] {
			// An empty fetch still reaches every handler as an empty batch.
			event := &entity.BatchEvent{
				Stream:  name,
				ShardID: cur.ShardID,
				Records: append(make([]entity.Record, 0, len(res.Records)), res.Records...),
			}
			wg.Add(1)
			go func(name string, ref entity.HandlerRef, event *entity.BatchEvent) {
				defer wg.Done()
				if err := ref.Invoke(ctx, event); err != nil {
					mu.Lock()
					failures = append(failures, handlerFailure{stream: name, function: ref.FunctionName, err: err})
					mu.Unlock()
				}
			}(name, ref, event)
		}
	}
	wg.Wait()

	var errs error
	for _, f := range failures {
		errs = multierr.Append(errs, f.err)
	}
	return failures, errs
}

func (w *StreamWatcher) publishFailures(ctx context.Context, results map[string]*entity.FetchResult, failures []handlerFailure) {
	if w.sink == nil {
		return
	}
	for _, f := range failures {
		res := results[f.stream]
		if res == nil {
			continue
		}
		batch := &entity.FailedBatch{
			Cycle:    w.cycle,
			Stream:   f.stream,
			Function: f.function,
			Reason:   f.err.Error(),
			Records:  res.Records,
		}
		if err := w.sink.PublishFailedBatch(ctx, batch); err != nil {
			w.log.Warn("Failed to publish failed batch", "stream", f.stream, "function", f.function, "err", err)
			imetrics.App().WarningsTotal.WithLabelValues(imetrics.ComponentSink, "publish").Inc()
		}
	}
}

// Registry returns the registry built at startup; nil before Run.
func (w *StreamWatcher) Registry() entity.StreamRegistry {
	return w.registry
}

// Iterators returns a copy of the shard iterator table. Call it only from the
// goroutine running Run, or after Run has returned.
func (w *StreamWatcher) Iterators() entity.ShardIteratorTable {
	return w.iterators.Table()
}

// Status reports progress counters; safe for concurrent use.
func (w *StreamWatcher) Status() Status {
	return Status{
		Running:           w.running.Load(),
		Cycles:            w.cycles.Load(),
		ConsecutiveErrors: int(w.streak.Load()),
		OpenStreams:       int(w.openStreams.Load()),
	}
}
