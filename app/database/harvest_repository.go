package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/request-hub/app/harvest"
)

type HarvestRepository struct {
	db *DB
}

func NewHarvestRepository(db *DB) *HarvestRepository {
	return &HarvestRepository{db: db}
}

func (r *HarvestRepository) UpsertHarvest(ctx context.Context, adaptorName string, timestamp time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO harvest_history (adaptor_name, timestamp) VALUES (?, ?)
		ON CONFLICT (adaptor_name) DO UPDATE SET timestamp = excluded.timestamp
	`, adaptorName, timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert harvest: %w", err)
	}
	return nil
}

func (r *HarvestRepository) GetHarvest(ctx context.Context, adaptorName string) (*harvest.Record, error) {
	var ts int64
	err := r.db.QueryRowContext(ctx, `
		SELECT timestamp FROM harvest_history WHERE adaptor_name = ?
	`, adaptorName).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest: %w", err)
	}

	return &harvest.Record{AdaptorName: adaptorName, Timestamp: fromUnixNano(ts)}, nil
}
