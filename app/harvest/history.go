package harvest

import (
	"context"
	"fmt"
	"time"
)

// Epoch is returned for adaptors that were never harvested.
var Epoch = time.Unix(0, 0).UTC()

// Named is anything identified by an adaptor name.
type Named interface {
	GetName() string
}

type Record struct {
	AdaptorName string
	Timestamp   time.Time
}

type Repository interface {
	UpsertHarvest(ctx context.Context, adaptorName string, timestamp time.Time) error
	GetHarvest(ctx context.Context, adaptorName string) (*Record, error)
}

// History tracks the last successful harvest per adaptor. Records are
// overwritten, not versioned.
type History struct {
	repo Repository
	now  func() time.Time
}

func NewHistory(repo Repository) *History {
	return &History{repo: repo, now: time.Now}
}

func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

func (h *History) Record(ctx context.Context, adaptor Named) (*Record, error) {
	record := &Record{
		AdaptorName: adaptor.GetName(),
		Timestamp:   h.now().UTC(),
	}

	if err := h.repo.UpsertHarvest(ctx, record.AdaptorName, record.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to record harvest for %s: %w", record.AdaptorName, err)
	}

	return record, nil
}

func (h *History) GetTimestamp(ctx context.Context, adaptor Named) (time.Time, error) {
	record, err := h.repo.GetHarvest(ctx, adaptor.GetName())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get harvest for %s: %w", adaptor.GetName(), err)
	}
	if record == nil {
		return Epoch, nil
	}
	return record.Timestamp, nil
}
