package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/port"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/offline-stream-watcher/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// IteratorManager owns the shard iterator table. Only the first shard of a
// stream is read. The table lives in memory for a single run.
//
// It is not safe for concurrent use; the watcher loop is its only caller.
type IteratorManager struct {
	log      applog.AppLogger
	provider port.StreamProvider
	table    entity.ShardIteratorTable
}

func NewIteratorManager(log applog.AppLogger, provider port.StreamProvider) *IteratorManager {
	return &IteratorManager{
		log:      log,
		provider: provider,
		table:    entity.ShardIteratorTable{},
	}
}

// Init acquires a TRIM_HORIZON iterator on the first shard of every stream,
// concurrently. Any describe or acquisition failure is returned and nothing
// is retried.
func (m *IteratorManager) Init(ctx context.Context, streams []string) error {
	var (
		mu    sync.Mutex
		table = make(entity.ShardIteratorTable, len(streams))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range streams {
		name := name
		g.Go(func() error {
			cursor, err := m.acquire(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			table[name] = cursor
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.table = table
	imetrics.Watcher().OpenIterators.Set(float64(len(table.Open())))
	m.log.Info("Acquired shard iterators", "streams", len(table))
	return nil
}

func (m *IteratorManager) acquire(ctx context.Context, stream string) (entity.Cursor, error) {
	shards, err := m.provider.DescribeStream(ctx, stream)
	if err != nil {
		return entity.Cursor{}, apperr.NewStreamDescribeErr(stream, fmt.Sprintf("failed to describe stream %q", stream), err)
	}
	if len(shards) == 0 {
		return entity.Cursor{}, apperr.NewStreamDescribeErr(stream, fmt.Sprintf("stream %q has no shards", stream), nil)
	}
	if len(shards) > 1 {
		m.log.Warn("Stream has more than one shard; only the first is read", "stream", stream, "shards", len(shards), "shard_id", shards[0].ID)
	}

	shardID := shards[0].ID
	token, err := m.provider.GetShardIterator(ctx, shardID, entity.IteratorTrimHorizon, stream)
	if err != nil {
		return entity.Cursor{}, apperr.NewIteratorAcquisitionErr(stream, fmt.Sprintf("failed to get shard iterator for stream %q", stream), err)
	}
	if token == "" {
		return entity.Cursor{}, apperr.NewIteratorAcquisitionErr(stream, fmt.Sprintf("empty shard iterator for stream %q", stream), nil)
	}
	m.log.Debug("Acquired shard iterator", "stream", stream, "shard_id", shardID)
	return entity.Cursor{ShardID: shardID, Token: token}, nil
}

// Open returns the streams that still have a usable cursor.
func (m *IteratorManager) Open() []string {
	return m.table.Open()
}

// Cursor returns the current cursor of stream.
func (m *IteratorManager) Cursor(stream string) (entity.Cursor, bool) {
	c, ok := m.table[stream]
	return c, ok
}

// Table returns a copy of the current table.
func (m *IteratorManager) Table() entity.ShardIteratorTable {
	return m.table.Clone()
}

// Advance applies the fetch results of one cycle. A next cursor replaces the
// stored token; a missing one closes the entry. Streams without a result keep
// their cursor.
func (m *IteratorManager) Advance(results map[string]*entity.FetchResult) {
	for name, res := range results {
		cur, ok := m.table[name]
		if !ok || res == nil {
			continue
		}
		if res.NextCursor == nil {
			cur.Closed = true
			cur.Token = ""
			m.log.Info("Shard iterator closed; stream will no longer be polled", "stream", name, "shard_id", cur.ShardID)
		} else {
			cur.Token = *res.NextCursor
		}
		m.table[name] = cur
	}
	imetrics.Watcher().OpenIterators.Set(float64(len(m.table.Open())))
}
