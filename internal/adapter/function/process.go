package function

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
)

const (
	defaultShell   = "/bin/sh"
	stderrTailSize = 2048
	accountID      = "000000000000"
	defaultRegion  = "us-east-1"
)

// ProcessConfig controls how function handlers are run as commands.
type ProcessConfig struct {
	// Shell runs both the build command and every handler command with "-c".
	Shell string
	// BuildCommand runs once in Compile. Empty skips the build.
	BuildCommand string
	WorkDir      string `validate:"omitempty,dir"`
	Region       string
}

// ProcessResolver runs each function's handler as a shell command. The event
// is written to stdin as a Kinesis Lambda event document, the merged
// environment becomes the process environment and stdout is the result. A
// non-zero exit fails the invocation.
type ProcessResolver struct {
	log applog.AppLogger
	svc *entity.ServiceDefinition
	cfg ProcessConfig
}

func NewProcessResolver(log applog.AppLogger, v *validator.Validate, svc *entity.ServiceDefinition, cfg ProcessConfig) (*ProcessResolver, error) {
	if svc == nil {
		return nil, apperr.NewInvalidArgErr("service definition is required", nil)
	}
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid process resolver config", err)
	}
	if cfg.Shell == "" {
		cfg.Shell = defaultShell
	}
	if cfg.Region == "" {
		cfg.Region = svc.Region
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return &ProcessResolver{log: log, svc: svc, cfg: cfg}, nil
}

func (r *ProcessResolver) Compile(ctx context.Context) (*entity.CompileStats, error) {
	stats := &entity.CompileStats{}
	for _, fn := range r.svc.Functions {
		if fn.Handler != "" {
			stats.Functions++
		}
	}
	if r.cfg.BuildCommand == "" {
		return stats, nil
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.cfg.Shell, "-c", r.cfg.BuildCommand)
	cmd.Dir = r.cfg.WorkDir
	out, err := cmd.CombinedOutput()
	stats.Duration = time.Since(start)
	stats.Output = string(out)
	if err != nil {
		return stats, fmt.Errorf("build command failed: %w: %s", err, tail(out))
	}
	r.log.Debug("Build command finished", "command", r.cfg.BuildCommand, "duration", stats.Duration)
	return stats, nil
}

func (r *ProcessResolver) Resolve(name string) (port.Entrypoint, error) {
	fn, ok := r.svc.Function(name)
	if !ok {
		return nil, apperr.NewNotFoundErr(fmt.Sprintf("function %q is not defined", name), nil)
	}
	if strings.TrimSpace(fn.Handler) == "" {
		return nil, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has no handler", name), nil)
	}
	command := fn.Handler
	return func(ctx context.Context, event *entity.BatchEvent, lc *entity.InvocationContext, done port.Callback) {
		done(r.run(ctx, command, event, lc))
	}, nil
}

func (r *ProcessResolver) run(ctx context.Context, command string, event *entity.BatchEvent, lc *entity.InvocationContext) (any, error) {
	payload, err := json.Marshal(NewLambdaEvent(event, r.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.Shell, "-c", command)
	cmd.Dir = r.cfg.WorkDir
	cmd.Env = processEnv(lc)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Trace("Running handler command", "function", lc.FunctionName, "request_id", lc.AwsRequestID, "records", len(event.Records))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("handler command failed: %w: %s", err, tail(stderr.Bytes()))
	}
	if stderr.Len() > 0 {
		r.log.Debug("Handler wrote to stderr", "function", lc.FunctionName, "stderr", tail(stderr.Bytes()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func processEnv(lc *entity.InvocationContext) []string {
	env := make(map[string]string, len(lc.Environment)+5)
	for k, v := range lc.Environment {
		env[k] = v
	}
	env["AWS_LAMBDA_FUNCTION_NAME"] = lc.FunctionName
	env["AWS_LAMBDA_FUNCTION_VERSION"] = lc.FunctionVersion
	env["AWS_LAMBDA_LOG_GROUP_NAME"] = lc.LogGroupName
	env["AWS_LAMBDA_LOG_STREAM_NAME"] = lc.LogStreamName
	env["AWS_REQUEST_ID"] = lc.AwsRequestID

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailSize {
		s = s[len(s)-stderrTailSize:]
	}
	return s
}

// LambdaEvent is the document handler commands read from stdin.
type LambdaEvent struct {
	Records []LambdaRecord `json:"Records"`
}

type LambdaRecord struct {
	Kinesis        KinesisData `json:"kinesis"`
	EventSource    string      `json:"eventSource"`
	EventVersion   string      `json:"eventVersion"`
	EventID        string      `json:"eventID"`
	EventName      string      `json:"eventName"`
	AwsRegion      string      `json:"awsRegion"`
	EventSourceARN string      `json:"eventSourceARN"`
}

// KinesisData carries one record; Data is base64 encoded by encoding/json.
type KinesisData struct {
	KinesisSchemaVersion        string  `json:"kinesisSchemaVersion"`
	PartitionKey                string  `json:"partitionKey"`
	SequenceNumber              string  `json:"sequenceNumber"`
	Data                        []byte  `json:"data"`
	ApproximateArrivalTimestamp float64 `json:"approximateArrivalTimestamp"`
}

// NewLambdaEvent converts a batch into the Kinesis Lambda event shape.
func NewLambdaEvent(event *entity.BatchEvent, region string) *LambdaEvent {
	sourceArn := fmt.Sprintf("arn:aws:kinesis:%s:%s:stream/%s", region, accountID, event.Stream)
	out := &LambdaEvent{Records: make([]LambdaRecord, 0, len(event.Records))}
	for _, rec := range event.Records {
		var arrival float64
		if !rec.ApproximateArrivalTimestamp.IsZero() {
			arrival = float64(rec.ApproximateArrivalTimestamp.UnixMilli()) / 1000
		}
		out.Records = append(out.Records, LambdaRecord{
			Kinesis: KinesisData{
				KinesisSchemaVersion:        "1.0",
				PartitionKey:                rec.PartitionKey,
				SequenceNumber:              rec.SequenceNumber,
				Data:                        rec.Data,
				ApproximateArrivalTimestamp: arrival,
			},
			EventSource:    "aws:kinesis",
			EventVersion:   "1.0",
			EventID:        event.ShardID + ":" + rec.SequenceNumber,
			EventName:      "aws:kinesis:record",
			AwsRegion:      region,
			EventSourceARN: sourceArn,
		})
	}
	return out
}
