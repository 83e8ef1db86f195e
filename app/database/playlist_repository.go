package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lysyi3m/request-hub/app/playlist"
)

const playlistDateLayout = "2006-01-02"

type PlaylistRepository struct {
	db *DB
}

func NewPlaylistRepository(db *DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// GetOrCreatePlaylist inserts the playlist unless it exists and returns the
// stored one. Concurrent callers always observe the same row.
func (r *PlaylistRepository) GetOrCreatePlaylist(ctx context.Context, id string, date time.Time) (*playlist.Playlist, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlists (id, date, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, date.Format(playlistDateLayout), time.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	p, err := r.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("playlist %s missing after insert", id)
	}
	return p, nil
}

func (r *PlaylistRepository) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	var date string
	err := r.db.QueryRowContext(ctx, `SELECT date FROM playlists WHERE id = ?`, id).Scan(&date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	p := &playlist.Playlist{ID: id}
	if p.Date, err = time.ParseInLocation(playlistDateLayout, date, time.Local); err != nil {
		return nil, fmt.Errorf("failed to parse playlist date %q: %w", date, err)
	}

	if p.Entries, err = r.getEntries(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// AppendEntry marks the entry's request broadcast and appends the entry after
// the playlist's last position, in one transaction. It returns false without
// appending when the request was already broadcast.
func (r *PlaylistRepository) AppendEntry(ctx context.Context, playlistID string, entry playlist.Entry) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE requests SET broadcast = 1, version = version + 1
		WHERE id = ? AND broadcast = 0
	`, entry.RequestID)
	if err != nil {
		return false, fmt.Errorf("failed to mark request broadcast: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = ?)`, entry.RequestID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check request: %w", err)
		}
		if !exists {
			return false, fmt.Errorf("request %s not found", entry.RequestID)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlist_entries (playlist_id, position, request_id, url, added_at)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?
		FROM playlist_entries WHERE playlist_id = ?
	`, playlistID, entry.RequestID, entry.URL, entry.AddedAt.UnixNano(), playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to append playlist entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ListPlaylists returns playlist ids, newest day first, without entries.
func (r *PlaylistRepository) ListPlaylists(ctx context.Context, limit int) ([]playlist.Playlist, error) {
	query := sq.Select("id", "date").From("playlists").OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []playlist.Playlist
	for rows.Next() {
		var p playlist.Playlist
		var date string
		if err := rows.Scan(&p.ID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		if p.Date, err = time.ParseInLocation(playlistDateLayout, date, time.Local); err != nil {
			return nil, fmt.Errorf("failed to parse playlist date %q: %w", date, err)
		}
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}

func (r *PlaylistRepository) getEntries(ctx context.Context, playlistID string) ([]playlist.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT request_id, url, added_at FROM playlist_entries
		WHERE playlist_id = ?
		ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist entries: %w", err)
	}
	defer rows.Close()

	var entries []playlist.Entry
	for rows.Next() {
		var e playlist.Entry
		var addedAt int64
		if err := rows.Scan(&e.RequestID, &e.URL, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist entry: %w", err)
		}
		e.AddedAt = fromUnixNano(addedAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
