package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lysyi3m/request-hub/app/adaptor"
)

var adaptorColumns = []string{"name", "source", "contact", "trusted", "api_key", "created_at", "updated_at"}

type AdaptorRepository struct {
	db *DB
}

func NewAdaptorRepository(db *DB) *AdaptorRepository {
	return &AdaptorRepository{db: db}
}

// UpsertAdaptor stores the adaptor keyed by name. An empty API key is stored
// as NULL so unkeyed adaptors do not collide on the unique index.
func (r *AdaptorRepository) UpsertAdaptor(ctx context.Context, a *adaptor.RemoteAdaptor) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO adaptors (name, source, contact, trusted, api_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			source = excluded.source,
			contact = excluded.contact,
			trusted = excluded.trusted,
			api_key = excluded.api_key,
			updated_at = excluded.updated_at
	`, a.Name, a.Source, a.Contact, a.Trusted, a.APIKey, a.CreatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert adaptor: %w", err)
	}
	return nil
}

func (r *AdaptorRepository) GetAdaptor(ctx context.Context, name string) (*adaptor.RemoteAdaptor, error) {
	return r.getOne(ctx, sq.Eq{"name": name})
}

func (r *AdaptorRepository) GetAdaptorByAPIKey(ctx context.Context, apiKey string) (*adaptor.RemoteAdaptor, error) {
	return r.getOne(ctx, sq.Eq{"api_key": apiKey})
}

func (r *AdaptorRepository) ListAdaptors(ctx context.Context) ([]adaptor.RemoteAdaptor, error) {
	sqlStr, args, err := sq.Select(adaptorColumns...).From("adaptors").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list adaptors: %w", err)
	}
	defer rows.Close()

	var adaptors []adaptor.RemoteAdaptor
	for rows.Next() {
		a, err := scanAdaptor(rows)
		if err != nil {
			return nil, err
		}
		adaptors = append(adaptors, *a)
	}

	return adaptors, rows.Err()
}

func (r *AdaptorRepository) getOne(ctx context.Context, where sq.Eq) (*adaptor.RemoteAdaptor, error) {
	sqlStr, args, err := sq.Select(adaptorColumns...).From("adaptors").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	a, err := scanAdaptor(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAdaptor(row scanner) (*adaptor.RemoteAdaptor, error) {
	var a adaptor.RemoteAdaptor
	var apiKey sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&a.Name, &a.Source, &a.Contact, &a.Trusted, &apiKey, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan adaptor: %w", err)
	}

	a.APIKey = apiKey.String
	a.CreatedAt = fromUnixNano(createdAt)
	a.UpdatedAt = fromUnixNano(updatedAt)
	return &a, nil
}
