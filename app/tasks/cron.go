package tasks

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// BroadcastCron enqueues a broadcast on a cron schedule such as "0 18 * * *"
// or "@daily".
type BroadcastCron struct {
	cron      *cron.Cron
	scheduler TaskSchedulerInterface
}

func NewBroadcastCron(schedule string, scheduler TaskSchedulerInterface) (*BroadcastCron, error) {
	c := cron.New()
	bc := &BroadcastCron{cron: c, scheduler: scheduler}

	if _, err := c.AddFunc(schedule, bc.run); err != nil {
		return nil, fmt.Errorf("invalid broadcast schedule %q: %w", schedule, err)
	}
	return bc, nil
}

func (bc *BroadcastCron) Start() {
	bc.cron.Start()
}

// Stop halts the schedule and waits for a running enqueue to return.
func (bc *BroadcastCron) Stop() {
	<-bc.cron.Stop().Done()
}

func (bc *BroadcastCron) run() {
	if err := bc.scheduler.EnqueueBroadcast(); err != nil {
		slog.Warn("Failed to enqueue scheduled broadcast", "error", err)
		return
	}
	slog.Debug("Scheduled broadcast enqueued")
}
