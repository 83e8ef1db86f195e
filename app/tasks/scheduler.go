package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskQueueSize = 300

type Options struct {
	WorkerCount    int
	Interval       time.Duration
	BroadcastLimit int
}

type Scheduler struct {
	configCache      *adaptor.ConfigCache
	registry         *adaptor.Registry
	requests         RequestStore
	history          *harvest.History
	builder          *playlist.Builder
	fetcher          *Fetcher
	parser           *feed.Parser
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	opts             Options
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(configCache *adaptor.ConfigCache, registry *adaptor.Registry, requests RequestStore,
	history *harvest.History, builder *playlist.Builder, fetcher *Fetcher, parser *feed.Parser,
	filterer *feed.Filterer, contentExtractor *feed.ContentExtractor, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	return &Scheduler{
		configCache:      configCache,
		registry:         registry,
		requests:         requests,
		history:          history,
		builder:          builder,
		fetcher:          fetcher,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		opts:             opts,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueHarvests()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) EnqueueBroadcast() error {
	return s.EnqueueTask(NewBroadcastTask(s.requests, s.builder, s.opts.BroadcastLimit))
}

func (s *Scheduler) enqueueStartupTasks() {
	configs := s.configCache.GetConfigs()
	if len(configs) == 0 {
		slog.Debug("No adaptor configurations found")
		return
	}

	slog.Debug("Syncing adaptor configurations", "count", len(configs))

	for _, config := range configs {
		if err := s.EnqueueTask(NewSyncAdaptorTask(config, s.registry)); err != nil {
			slog.Warn("Failed to enqueue SyncAdaptorTask", "adaptor", config.Name, "error", err)
		}
	}

	s.enqueueDueHarvests()
}

// enqueueDueHarvests schedules a harvest for every harvestable adaptor whose
// refresh interval has elapsed since its last recorded harvest.
func (s *Scheduler) enqueueDueHarvests() {
	configs := s.configCache.GetHarvestableConfigs()
	if len(configs) == 0 {
		slog.Debug("No harvestable adaptor configurations found")
		return
	}

	now := time.Now().UTC()
	for _, config := range configs {
		last, err := s.history.GetTimestamp(s.ctx, config)
		if err != nil {
			slog.Warn("Failed to get last harvest, skipping", "adaptor", config.Name, "error", err)
			continue
		}

		next := last.Add(time.Duration(config.Settings.RefreshInterval) * time.Second)
		if next.After(now) {
			slog.Debug("Adaptor not due for harvest yet", "adaptor", config.Name, "next_harvest_at", next)
			continue
		}

		task := NewHarvestAdaptorTask(config, s.fetcher, s.parser, s.filterer, s.contentExtractor, s.requests, s.history)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue HarvestAdaptorTask", "adaptor", config.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
		}
	}()
}
