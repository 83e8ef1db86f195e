package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/request-hub/app/playlist"
)

// BroadcastTask moves the best-voted pool requests into today's playlist.
type BroadcastTask struct {
	Task
	Limit    int
	requests PoolSource
	builder  *playlist.Builder
}

func NewBroadcastTask(requests PoolSource, builder *playlist.Builder, limit int) *BroadcastTask {
	_, key := builder.CurrentTimestamp()
	return &BroadcastTask{
		Task:     NewTask(TaskTypeBroadcast, key),
		Limit:    limit,
		requests: requests,
		builder:  builder,
	}
}

func (t *BroadcastTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pool, err := t.requests.FetchContentPool(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch content pool: %w", err)
	}

	added, err := t.builder.Broadcast(ctx, pool, t.Limit)
	if err != nil {
		return fmt.Errorf("failed to broadcast pool: %w", err)
	}

	slog.Info("Task completed",
		"type", "Broadcast",
		"playlist", t.Subject,
		"duration", t.GetDuration(),
		"pool", len(pool),
		"added", len(added))

	return nil
}
