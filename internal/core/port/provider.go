package port

import (
	"context"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
)

// StreamProvider is the stream backend polled by the watcher (Kinesis, or a
// Redis stream emulating it).
type StreamProvider interface {
	DescribeStream(ctx context.Context, stream string) ([]entity.Shard, error)
	GetShardIterator(ctx context.Context, shardID string, policy entity.IteratorPolicy, stream string) (string, error)
	GetRecords(ctx context.Context, cursor string, limit int64) (*entity.FetchResult, error)
}

// RecordWriter appends records to a stream. Used by the put command to feed
// local streams.
type RecordWriter interface {
	PutRecord(ctx context.Context, stream, partitionKey string, data []byte) (string, error)
}
