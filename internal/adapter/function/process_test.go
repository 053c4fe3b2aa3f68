package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/stretchr/testify/require"
)

type testLog struct{ entries []string }

func (l *testLog) Info(msg string, args ...any)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLog) Warn(msg string, args ...any)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLog) Error(msg string, args ...any) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLog) Debug(msg string, args ...any) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLog) Trace(msg string, args ...any) { l.entries = append(l.entries, "TRACE:"+msg) }
func (l *testLog) Fatal(msg string, args ...any) { l.entries = append(l.entries, "FATAL:"+msg) }

func testEvent() *entity.BatchEvent {
	return &entity.BatchEvent{
		Stream:  "orders",
		ShardID: "shardId-000000000000",
		Records: []entity.Record{
			{Data: []byte("AAA"), PartitionKey: "pk", SequenceNumber: "1", ApproximateArrivalTimestamp: time.UnixMilli(1710000000500)},
			{Data: []byte("BBB"), PartitionKey: "pk", SequenceNumber: "2"},
		},
	}
}

func testInvocation(env map[string]string) *entity.InvocationContext {
	return &entity.InvocationContext{
		FunctionName:    "fnA",
		FunctionVersion: "$LATEST",
		AwsRequestID:    "req-1",
		Environment:     env,
	}
}

func newProcessResolver(t *testing.T, svc *entity.ServiceDefinition, cfg ProcessConfig) *ProcessResolver {
	t.Helper()
	r, err := NewProcessResolver(&testLog{}, validator.New(), svc, cfg)
	require.NoError(t, err)
	return r
}

func call(t *testing.T, r *ProcessResolver, name string, lc *entity.InvocationContext) (any, error) {
	t.Helper()
	entry, err := r.Resolve(name)
	require.NoError(t, err)
	var (
		res    any
		resErr error
	)
	entry(context.Background(), testEvent(), lc, func(out any, err error) { res, resErr = out, err })
	return res, resErr
}

func TestNewLambdaEvent(t *testing.T) {
	ev := NewLambdaEvent(testEvent(), "eu-west-1")
	require.Len(t, ev.Records, 2)
	r := ev.Records[0]
	require.Equal(t, "aws:kinesis", r.EventSource)
	require.Equal(t, "shardId-000000000000:1", r.EventID)
	require.Equal(t, "arn:aws:kinesis:eu-west-1:000000000000:stream/orders", r.EventSourceARN)
	require.Equal(t, 1710000000.5, r.Kinesis.ApproximateArrivalTimestamp)
	require.Zero(t, ev.Records[1].Kinesis.ApproximateArrivalTimestamp)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded struct {
		Records []struct {
			Kinesis struct {
				Data string `json:"data"`
			} `json:"kinesis"`
		} `json:"Records"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("AAA")), decoded.Records[0].Kinesis.Data)
}

func TestProcessResolver_Run(t *testing.T) {
	svc := &entity.ServiceDefinition{Functions: []entity.FunctionDefinition{
		{Name: "count", Handler: `grep -o '"eventSource"' | wc -l`},
		{Name: "env", Handler: `printf '%s/%s' "$STAGE" "$AWS_LAMBDA_FUNCTION_NAME"`},
		{Name: "fail", Handler: `echo broken >&2; exit 3`},
		{Name: "empty"},
	}}
	r := newProcessResolver(t, svc, ProcessConfig{})

	res, err := call(t, r, "count", testInvocation(map[string]string{"PATH": os.Getenv("PATH")}))
	require.NoError(t, err)
	require.Equal(t, "2", res)

	res, err = call(t, r, "env", testInvocation(map[string]string{"STAGE": "local", "PATH": os.Getenv("PATH")}))
	require.NoError(t, err)
	require.Equal(t, "local/fnA", res)

	_, err = call(t, r, "fail", testInvocation(nil))
	require.ErrorContains(t, err, "broken")

	_, err = r.Resolve("empty")
	var fde *apperr.FunctionDefinitionErr
	require.ErrorAs(t, err, &fde)

	_, err = r.Resolve("missing")
	var nf *apperr.NotFoundErr
	require.ErrorAs(t, err, &nf)
}

func TestProcessResolver_Compile(t *testing.T) {
	dir := t.TempDir()
	svc := &entity.ServiceDefinition{Functions: []entity.FunctionDefinition{
		{Name: "a", Handler: "true"},
		{Name: "b"},
	}}

	stats, err := newProcessResolver(t, svc, ProcessConfig{}).Compile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Functions)

	r := newProcessResolver(t, svc, ProcessConfig{WorkDir: dir, BuildCommand: "echo built > marker"})
	stats, err = r.Compile(context.Background())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "marker"))
	require.Equal(t, 1, stats.Functions)

	r = newProcessResolver(t, svc, ProcessConfig{BuildCommand: "echo nope; exit 1"})
	_, err = r.Compile(context.Background())
	require.ErrorContains(t, err, "nope")
}

func TestNewProcessResolver_Invalid(t *testing.T) {
	_, err := NewProcessResolver(&testLog{}, validator.New(), nil, ProcessConfig{})
	require.Error(t, err)

	_, err = NewProcessResolver(&testLog{}, validator.New(), &entity.ServiceDefinition{}, ProcessConfig{WorkDir: "/does/not/exist"})
	var ia *apperr.InvalidArgErr
	require.ErrorAs(t, err, &ia)
}
