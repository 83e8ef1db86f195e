package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/request-hub/app/adaptor"
)

// SyncAdaptorTask stores an adaptor config in the registry, issuing an API
// key the first time the adaptor is seen.
type SyncAdaptorTask struct {
	Task
	Config   *adaptor.Config
	registry *adaptor.Registry
}

func NewSyncAdaptorTask(config *adaptor.Config, registry *adaptor.Registry) *SyncAdaptorTask {
	return &SyncAdaptorTask{
		Task:     NewTask(TaskTypeSyncAdaptor, config.Name),
		Config:   config,
		registry: registry,
	}
}

func (t *SyncAdaptorTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.registry.Save(ctx, t.Config.RemoteAdaptor()); err != nil {
		return fmt.Errorf("failed to sync adaptor config: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncAdaptor",
		"adaptor", t.Subject,
		"duration", t.GetDuration())

	return nil
}
