package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/offline-stream-watcher/internal/pkg/metrics"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/pattern"
)

const (
	defaultRetryAttempts       = 5
	defaultRetryInitialBackoff = 200 * time.Millisecond
	defaultRetryMaxBackoff     = 2 * time.Second
	defaultRetryJitter         = 0.2
	defaultWriteTimeout        = 10 * time.Second
)

// kgoClient is the subset of *kgo.Client the sink uses.
type kgoClient interface {
	BeginTransaction() error
	EndTransaction(ctx context.Context, commit kgo.TransactionEndTry) error
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

var newKgoClient = func(opts ...kgo.Opt) (kgoClient, error) {
	return kgo.NewClient(opts...)
}

// KafkaFailureSink publishes batches rejected by a handler to a dead-letter
// topic. Published batches are never consumed back by the watcher.
type KafkaFailureSink struct {
	log          applog.AppLogger
	client       kgoClient
	cfg          Config
	writeTimeout time.Duration
	retryOpts    []pattern.RetryOption
}

// failedBatchPayload is the record value written to the topic.
type failedBatchPayload struct {
	Cycle    uint64          `json:"cycle"`
	Stream   string          `json:"stream"`
	Function string          `json:"function"`
	Reason   string          `json:"reason"`
	Records  []entity.Record `json:"records"`
}

// NewKafkaFailureSink builds a Kafka-backed sink with validated configuration and retry settings.
func NewKafkaFailureSink(log applog.AppLogger, cfg Config, v *validator.Validate) (*KafkaFailureSink, error) {
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid kafka failure sink config", err)
	}
	if !cfg.Enabled {
		return nil, apperr.NewInvalidArgErr("kafka failure sink is disabled", nil)
	}

	maxAttempts := cfg.MaxRetryAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultRetryAttempts
	}

	initialBackoff := millisecondsOrDefault(cfg.RetryInitialBackoffMS, defaultRetryInitialBackoff)
	maxBackoff := millisecondsOrDefault(cfg.RetryMaxBackoffMS, defaultRetryMaxBackoff)
	if maxBackoff < initialBackoff {
		maxBackoff = initialBackoff
	}

	writeTimeout := secondsOrDefault(cfg.WriteTimeoutSeconds, defaultWriteTimeout)
	jitter := cfg.RetryJitter
	if jitter <= 0 {
		jitter = defaultRetryJitter
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.TransactionalID != "" {
		opts = append(opts, kgo.TransactionalID(cfg.TransactionalID))
	}
	client, err := newKgoClient(opts...)
	if err != nil {
		return nil, apperr.NewInvalidArgErr("failed to init kafka client", err)
	}

	ks := &KafkaFailureSink{
		log:          log,
		client:       client,
		cfg:          cfg,
		writeTimeout: writeTimeout,
	}

	ks.retryOpts = []pattern.RetryOption{
		pattern.WithMaxAttempts(maxAttempts),
		pattern.WithInitialDelay(initialBackoff),
		pattern.WithMaxDelay(maxBackoff),
		pattern.WithJitter(jitter),
		pattern.WithShouldRetry(ks.shouldRetry),
	}

	return ks, nil
}

// PublishFailedBatch writes one failed batch, keyed by stream, with retries.
func (ks *KafkaFailureSink) PublishFailedBatch(ctx context.Context, batch *entity.FailedBatch) error {
	if batch == nil {
		return apperr.NewInvalidArgErr("failed batch is required", nil)
	}

	payload, err := json.Marshal(failedBatchPayload{
		Cycle:    batch.Cycle,
		Stream:   batch.Stream,
		Function: batch.Function,
		Reason:   batch.Reason,
		Records:  batch.Records,
	})
	if err != nil {
		imetrics.Sink().PublishErrorsTotal.WithLabelValues("marshal").Inc()
		return apperr.NewFailurePublishErr("failed to marshal failed batch", err)
	}

	rec := ks.buildRecord(batch, payload)
	if err := pattern.Retry(ctx, func(attempt int) error {
		imetrics.Sink().PublishAttemptsTotal.Inc()
		if ks.cfg.TransactionalID != "" {
			if err := ks.client.BeginTransaction(); err != nil {
				return err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, ks.writeTimeout)
		defer cancel()

		start := time.Now()
		res := ks.client.ProduceSync(attemptCtx, rec)
		imetrics.Sink().PublishLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
		writeErr := res.FirstErr()
		if ks.cfg.TransactionalID != "" {
			if writeErr == nil {
				if err := ks.client.EndTransaction(context.Background(), kgo.TryCommit); err != nil {
					writeErr = err
				}
			} else {
				_ = ks.client.EndTransaction(context.Background(), kgo.TryAbort)
			}
		}

		if writeErr != nil {
			if ks.shouldRetry(writeErr) {
				imetrics.Sink().PublishErrorsTotal.WithLabelValues("retriable").Inc()
				ks.log.Warn("Kafka publish attempt failed", "attempt", attempt, "stream", batch.Stream, "function", batch.Function, "topic", ks.cfg.Topic, "err", writeErr)
			} else {
				imetrics.Sink().PublishErrorsTotal.WithLabelValues("fatal").Inc()
				ks.log.Error("Kafka publish failed (non-retriable)", "stream", batch.Stream, "function", batch.Function, "topic", ks.cfg.Topic, "err", writeErr)
			}
		}
		return writeErr
	}, ks.retryOpts...); err != nil {
		return apperr.NewFailurePublishErr("failed to publish failed batch to kafka", err)
	}

	imetrics.Sink().PublishSuccessTotal.Inc()
	ks.log.Trace("Published failed batch to Kafka", "topic", ks.cfg.Topic, "stream", batch.Stream, "function", batch.Function, "records", len(batch.Records))
	return nil
}

func (ks *KafkaFailureSink) buildRecord(batch *entity.FailedBatch, payload []byte) *kgo.Record {
	return &kgo.Record{
		Topic: ks.cfg.Topic,
		Key:   []byte(batch.Stream),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "stream", Value: []byte(batch.Stream)},
			{Key: "function", Value: []byte(batch.Function)},
			{Key: "error", Value: []byte(batch.Reason)},
			{Key: "cycle", Value: []byte(strconv.FormatUint(batch.Cycle, 10))},
		},
	}
}

func (ks *KafkaFailureSink) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	if kerr.IsRetriable(err) {
		return true
	}

	// The dead-letter topic may be auto-created shortly after the first write.
	if errors.Is(err, kerr.UnknownTopicOrPartition) {
		return true
	}
	return false
}

// Close flushes nothing; ProduceSync already waited for every record.
func (ks *KafkaFailureSink) Close() {
	if c, ok := ks.client.(*kgo.Client); ok {
		c.Close()
	}
}

func millisecondsOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func secondsOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
