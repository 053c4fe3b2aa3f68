package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/redis/go-redis/v9"
)

const (
	fieldData         = "data"
	fieldPartitionKey = "partitionKey"

	trimHorizonID = "0-0"
	cursorSep     = "|"
)

// RedisStreamProvider serves streams from Redis Streams. Every stream is one
// key with a single shard. Cursors have the form <stream>|<last id>.
type RedisStreamProvider struct {
	rdb *redis.Client
	log applog.AppLogger
	cfg RedisConfig
}

// NewRedisStreamProvider validates the Config, constructs a Redis client with
// optional TLS, and returns the provider.
func NewRedisStreamProvider(log applog.AppLogger, v *validator.Validate, cfg RedisConfig) (*RedisStreamProvider, error) {
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid redis config", err)
	}

	opts := &redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeoutSeconds) * time.Second,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &RedisStreamProvider{
		rdb: redis.NewClient(opts),
		log: log,
		cfg: cfg,
	}, nil
}

func (p *RedisStreamProvider) key(stream string) string {
	return p.cfg.KeyPrefix + ":" + stream
}

// DescribeStream reports the single shard of an existing stream key.
func (p *RedisStreamProvider) DescribeStream(ctx context.Context, stream string) ([]entity.Shard, error) {
	n, err := p.rdb.Exists(ctx, p.key(stream)).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("stream %q not found (key %q)", stream, p.key(stream))
	}
	return []entity.Shard{{ID: SingleShardID}}, nil
}

func (p *RedisStreamProvider) GetShardIterator(ctx context.Context, shardID string, policy entity.IteratorPolicy, stream string) (string, error) {
	if shardID != SingleShardID {
		return "", fmt.Errorf("unknown shard %q", shardID)
	}
	switch policy {
	case entity.IteratorTrimHorizon:
		return encodeCursor(stream, trimHorizonID), nil
	case entity.IteratorLatest:
		msgs, err := p.rdb.XRevRangeN(ctx, p.key(stream), "+", "-", 1).Result()
		if err != nil {
			return "", err
		}
		if len(msgs) == 0 {
			return encodeCursor(stream, trimHorizonID), nil
		}
		return encodeCursor(stream, msgs[0].ID), nil
	default:
		return "", fmt.Errorf("unsupported iterator type %q", policy)
	}
}

// GetRecords returns up to limit entries after the cursor id. A stream key
// that disappeared closes the cursor.
func (p *RedisStreamProvider) GetRecords(ctx context.Context, cursor string, limit int64) (*entity.FetchResult, error) {
	stream, lastID, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	key := p.key(stream)

	// XRANGE is inclusive; fetch one extra and drop the cursor entry itself.
	msgs, err := p.rdb.XRangeN(ctx, key, lastID, "+", limit+1).Result()
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 && msgs[0].ID == lastID {
		msgs = msgs[1:]
	}
	if int64(len(msgs)) > limit {
		msgs = msgs[:limit]
	}

	if len(msgs) == 0 {
		n, err := p.rdb.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			p.log.Warn("Redis stream key is gone; closing cursor", "stream", stream, "key", key)
			return &entity.FetchResult{}, nil
		}
		return &entity.FetchResult{NextCursor: &cursor}, nil
	}

	res := &entity.FetchResult{Records: make([]entity.Record, 0, len(msgs))}
	for _, m := range msgs {
		res.Records = append(res.Records, toRecord(m))
	}
	next := encodeCursor(stream, msgs[len(msgs)-1].ID)
	res.NextCursor = &next
	return res, nil
}

// PutRecord appends one entry and returns its id.
func (p *RedisStreamProvider) PutRecord(ctx context.Context, stream, partitionKey string, data []byte) (string, error) {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.key(stream),
		Values: map[string]any{
			fieldData:         data,
			fieldPartitionKey: partitionKey,
		},
	}).Result()
}

func (p *RedisStreamProvider) Close() error {
	return p.rdb.Close()
}

func toRecord(m redis.XMessage) entity.Record {
	rec := entity.Record{SequenceNumber: m.ID}
	if v, ok := m.Values[fieldData]; ok {
		rec.Data = []byte(fmt.Sprint(v))
	}
	if v, ok := m.Values[fieldPartitionKey]; ok {
		rec.PartitionKey = fmt.Sprint(v)
	}
	if ms, _, ok := strings.Cut(m.ID, "-"); ok {
		if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
			rec.ApproximateArrivalTimestamp = time.UnixMilli(n).UTC()
		}
	}
	return rec
}

func encodeCursor(stream, id string) string {
	return stream + cursorSep + id
}

func decodeCursor(cursor string) (string, string, error) {
	i := strings.LastIndex(cursor, cursorSep)
	if i <= 0 || i == len(cursor)-1 {
		return "", "", fmt.Errorf("malformed cursor %q", cursor)
	}
	return cursor[:i], cursor[i+1:], nil
}
