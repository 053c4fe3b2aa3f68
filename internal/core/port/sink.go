package port

import (
	"context"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
)

// FailureSink records batches whose handlers failed. Batches are never replayed.
type FailureSink interface {
	PublishFailedBatch(ctx context.Context, batch *entity.FailedBatch) error
}
