package tasks

import (
	"context"

	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/request"
)

// TaskSchedulerInterface is what the API and the broadcast cron need from the
// worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueBroadcast() error
}

// HarvestStore saves harvested requests and remembers which feed items each
// adaptor has already produced.
type HarvestStore interface {
	SaveHarvested(ctx context.Context, adaptorName string, items []harvest.Harvested) error
	SeenItems(ctx context.Context, adaptorName string, hashes []string) (map[string]bool, error)
}

type PoolSource interface {
	FetchContentPool(ctx context.Context) ([]*request.Request, error)
}

type RequestStore interface {
	HarvestStore
	PoolSource
}
