package publish

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeKgo struct {
	beginErr error
	endErr   error
	prodErrs []error
	produced []*kgo.Record
}

func (f *fakeKgo) BeginTransaction() error                                           { return f.beginErr }
func (f *fakeKgo) EndTransaction(ctx context.Context, a kgo.TransactionEndTry) error { return f.endErr }
func (f *fakeKgo) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.produced = append(f.produced, rs...)
	if len(f.prodErrs) == 0 {
		return kgo.ProduceResults{{Record: rs[0], Err: nil}}
	}
	e := f.prodErrs[0]
	f.prodErrs = f.prodErrs[1:]
	return kgo.ProduceResults{{Record: rs[0], Err: e}}
}

type testLogger struct{}

func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
func (testLogger) Debug(string, ...any) {}
func (testLogger) Trace(string, ...any) {}
func (testLogger) Fatal(string, ...any) {}

func baseConfig() Config {
	return Config{Enabled: true, Brokers: []string{"127.0.0.1:9092"}, Topic: "watcher.dlq", ClientID: "c", MaxRetryAttempts: 1, RetryInitialBackoffMS: 1, RetryMaxBackoffMS: 2, RetryJitter: 0.1, WriteTimeoutSeconds: 1}
}

func testBatch() *entity.FailedBatch {
	return &entity.FailedBatch{
		Cycle:    7,
		Stream:   "orders",
		Function: "handlerB",
		Reason:   "boom",
		Records:  []entity.Record{{Data: []byte("AAA"), SequenceNumber: "1"}},
	}
}

func TestNewKafkaFailureSink_InvalidConfig(t *testing.T) {
	v := validator.New()
	cases := map[string]Config{
		"enabled_without_brokers": {Enabled: true, Topic: "t", ClientID: "c"},
		"enabled_without_topic":   {Enabled: true, Brokers: []string{"b:9092"}, ClientID: "c"},
		"empty_broker":            {Enabled: true, Brokers: []string{""}, Topic: "t", ClientID: "c"},
		"disabled":                {},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewKafkaFailureSink(testLogger{}, cfg, v)
			var ia *apperr.InvalidArgErr
			require.ErrorAs(t, err, &ia)
		})
	}
}

func TestKafkaFailureSink_PublishFailedBatch(t *testing.T) {
	v := validator.New()
	base := baseConfig()
	cases := []struct {
		name    string
		cfg     Config
		fk      *fakeKgo
		batch   *entity.FailedBatch
		wantErr bool
	}{
		{name: "nil batch", cfg: base, fk: &fakeKgo{}, batch: nil, wantErr: true},
		{name: "success no tx", cfg: base, fk: &fakeKgo{}, batch: testBatch()},
		{name: "success tx", cfg: func() Config { c := base; c.TransactionalID = "tx"; return c }(), fk: &fakeKgo{}, batch: testBatch()},
		{name: "begin tx fails", cfg: func() Config { c := base; c.TransactionalID = "tx"; return c }(), fk: &fakeKgo{beginErr: stdErrors.New("fenced")}, batch: testBatch(), wantErr: true},
		{name: "retry then fail", cfg: base, fk: &fakeKgo{prodErrs: []error{context.DeadlineExceeded}}, batch: testBatch(), wantErr: true},
		{
			name:  "retry then succeed",
			cfg:   func() Config { c := base; c.MaxRetryAttempts = 3; return c }(),
			fk:    &fakeKgo{prodErrs: []error{kerr.UnknownTopicOrPartition}},
			batch: testBatch(),
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			old := newKgoClient
			t.Cleanup(func() { newKgoClient = old })
			newKgoClient = func(opts ...kgo.Opt) (kgoClient, error) { return tc.fk, nil }
			ks, err := NewKafkaFailureSink(testLogger{}, tc.cfg, v)
			require.NoError(t, err)
			got := ks.PublishFailedBatch(context.Background(), tc.batch)
			if tc.wantErr {
				require.Error(t, got)
				return
			}
			require.NoError(t, got)
			require.NotEmpty(t, tc.fk.produced)
		})
	}
}

func TestHelpers(t *testing.T) {
	require.Equal(t, time.Duration(123)*time.Millisecond, millisecondsOrDefault(123, time.Second))
	require.Equal(t, time.Second, millisecondsOrDefault(0, time.Second))
	require.Equal(t, time.Duration(3)*time.Second, secondsOrDefault(3, time.Minute))
	require.Equal(t, time.Minute, secondsOrDefault(0, time.Minute))
}

func TestKafkaFailureSink_ShouldRetryAndBuildRecord(t *testing.T) {
	ks := &KafkaFailureSink{cfg: Config{Topic: "t"}}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "unknown topic", err: kerr.UnknownTopicOrPartition, want: true},
		{name: "retriable broker error", err: kerr.NotEnoughReplicas, want: true},
		{name: "non-retriable", err: stdErrors.New("boom"), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ks.shouldRetry(tc.err))
		})
	}

	rec := ks.buildRecord(testBatch(), []byte("payload"))
	require.Equal(t, "t", rec.Topic)
	require.Equal(t, []byte("orders"), rec.Key)
	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, map[string]string{"stream": "orders", "function": "handlerB", "error": "boom", "cycle": "7"}, headers)
}

func TestKafkaFailureSink_Payload(t *testing.T) {
	fk := &fakeKgo{}
	old := newKgoClient
	t.Cleanup(func() { newKgoClient = old })
	newKgoClient = func(opts ...kgo.Opt) (kgoClient, error) { return fk, nil }

	ks, err := NewKafkaFailureSink(testLogger{}, baseConfig(), validator.New())
	require.NoError(t, err)
	require.NoError(t, ks.PublishFailedBatch(context.Background(), testBatch()))
	require.Len(t, fk.produced, 1)

	var got failedBatchPayload
	require.NoError(t, json.Unmarshal(fk.produced[0].Value, &got))
	require.Equal(t, uint64(7), got.Cycle)
	require.Equal(t, "handlerB", got.Function)
	require.Len(t, got.Records, 1)
	require.Equal(t, []byte("AAA"), got.Records[0].Data)
}
