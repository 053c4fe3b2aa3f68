package provider

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
)

// KinesisProvider reads streams through the Kinesis API, usually pointed at
// Localstack.
type KinesisProvider struct {
	api kinesisiface.KinesisAPI
	log applog.AppLogger
}

// NewKinesisProvider validates cfg and builds an SDK session from it.
func NewKinesisProvider(log applog.AppLogger, v *validator.Validate, cfg KinesisConfig) (*KinesisProvider, error) {
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid kinesis config", err)
	}
	if err := cfg.LoadEndpointFile(); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid kinesis endpoint file", err)
	}

	region := cfg.ResolveRegion(os.Getenv)
	keyID, secret := cfg.ResolveCredentials(os.Getenv)
	awsCfg := aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewStaticCredentials(keyID, secret, "")).
		WithMaxRetries(cfg.MaxRetries)
	endpoint := cfg.ResolveEndpoint()
	if endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, apperr.NewInternalErr("failed to create aws session", err)
	}
	log.Info("Kinesis provider configured", "region", region, "endpoint", endpoint)
	return NewKinesisProviderWithAPI(log, kinesis.New(sess)), nil
}

// NewKinesisProviderWithAPI wraps an existing client.
func NewKinesisProviderWithAPI(log applog.AppLogger, api kinesisiface.KinesisAPI) *KinesisProvider {
	return &KinesisProvider{api: api, log: log}
}

func (p *KinesisProvider) DescribeStream(ctx context.Context, stream string) ([]entity.Shard, error) {
	out, err := p.api.DescribeStreamWithContext(ctx, &kinesis.DescribeStreamInput{
		StreamName: aws.String(stream),
	})
	if err != nil {
		return nil, err
	}
	if out.StreamDescription == nil {
		return nil, errors.New("describe stream returned no description")
	}
	shards := make([]entity.Shard, 0, len(out.StreamDescription.Shards))
	for _, s := range out.StreamDescription.Shards {
		shards = append(shards, entity.Shard{ID: aws.StringValue(s.ShardId)})
	}
	return shards, nil
}

func (p *KinesisProvider) GetShardIterator(ctx context.Context, shardID string, policy entity.IteratorPolicy, stream string) (string, error) {
	out, err := p.api.GetShardIteratorWithContext(ctx, &kinesis.GetShardIteratorInput{
		ShardId:           aws.String(shardID),
		ShardIteratorType: aws.String(string(policy)),
		StreamName:        aws.String(stream),
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.ShardIterator), nil
}

func (p *KinesisProvider) GetRecords(ctx context.Context, cursor string, limit int64) (*entity.FetchResult, error) {
	out, err := p.api.GetRecordsWithContext(ctx, &kinesis.GetRecordsInput{
		ShardIterator: aws.String(cursor),
		Limit:         aws.Int64(limit),
	})
	if err != nil {
		return nil, err
	}

	res := &entity.FetchResult{
		Records:            make([]entity.Record, 0, len(out.Records)),
		NextCursor:         out.NextShardIterator,
		MillisBehindLatest: aws.Int64Value(out.MillisBehindLatest),
	}
	for _, r := range out.Records {
		res.Records = append(res.Records, entity.Record{
			Data:                        r.Data,
			PartitionKey:                aws.StringValue(r.PartitionKey),
			SequenceNumber:              aws.StringValue(r.SequenceNumber),
			ApproximateArrivalTimestamp: aws.TimeValue(r.ApproximateArrivalTimestamp),
		})
	}
	return res, nil
}

// PutRecord writes one record and returns its sequence number.
func (p *KinesisProvider) PutRecord(ctx context.Context, stream, partitionKey string, data []byte) (string, error) {
	out, err := p.api.PutRecordWithContext(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(stream),
		PartitionKey: aws.String(partitionKey),
		Data:         data,
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.SequenceNumber), nil
}

// Close is a no-op; the SDK client holds no connections of its own.
func (p *KinesisProvider) Close() error { return nil }
