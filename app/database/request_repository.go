package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/request"
)

// Child rows are loaded with IN queries of at most this many ids.
const childBatchSize = 500

var requestColumns = []string{
	"id", "adaptor_name", "adaptor_source", "adaptor_trusted",
	"content_type", "content_format", "world",
	"posted", "processed", "broadcast", "current_revision", "version",
}

type RequestRepository struct {
	db *DB
}

func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// SaveRequest stores the request, its new revisions and its new suggestions
// in one transaction. It fails with request.ErrConflict when the stored row
// is no longer at req.Version. Votes of stored suggestions are only changed
// by IncrementVotes.
func (r *RequestRepository) SaveRequest(ctx context.Context, req *request.Request) error {
	return r.SaveRequests(ctx, []*request.Request{req})
}

func (r *RequestRepository) SaveRequests(ctx context.Context, reqs []*request.Request) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, req := range reqs {
			if err := saveRequest(ctx, tx, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, req := range reqs {
		req.Version++
	}
	return nil
}

// SaveHarvested stores harvested requests and marks their feed items seen for
// the adaptor in the same transaction.
func (r *RequestRepository) SaveHarvested(ctx context.Context, adaptorName string, items []harvest.Harvested) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		harvestedAt := time.Now().UnixNano()
		for _, item := range items {
			if err := saveRequest(ctx, tx, item.Request); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO harvested_items (adaptor_name, item_hash, request_id, harvested_at)
				VALUES (?, ?, ?, ?)
			`, adaptorName, item.ItemHash, item.Request.ID, harvestedAt)
			if err != nil {
				return fmt.Errorf("failed to mark item %s harvested: %w", item.ItemHash, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		item.Request.Version++
	}
	return nil
}

// SeenItems returns which of the given item hashes were already harvested
// from the adaptor.
func (r *RequestRepository) SeenItems(ctx context.Context, adaptorName string, hashes []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	for start := 0; start < len(hashes); start += childBatchSize {
		batch := hashes[start:min(start+childBatchSize, len(hashes))]

		sqlStr, args, err := sq.Select("item_hash").
			From("harvested_items").
			Where(sq.Eq{"adaptor_name": adaptorName, "item_hash": batch}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build query: %w", err)
		}

		rows, err := r.db.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query harvested items: %w", err)
		}
		for rows.Next() {
			var hash string
			if err := rows.Scan(&hash); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan harvested item: %w", err)
			}
			seen[hash] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return seen, nil
}

func (r *RequestRepository) GetRequest(ctx context.Context, id string) (*request.Request, error) {
	reqs, err := r.queryRequests(ctx, sq.Select(requestColumns...).From("requests").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return reqs[0], nil
}

func (r *RequestRepository) DeleteRequest(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// FetchCDSRequests returns every request not yet broadcast, most recently
// posted first. Requests posted at the same instant keep insertion order.
func (r *RequestRepository) FetchCDSRequests(ctx context.Context) ([]*request.Request, error) {
	query := sq.Select(requestColumns...).
		From("requests").
		Where(sq.Eq{"broadcast": false}).
		OrderBy("posted DESC", "seq ASC")

	reqs, err := r.queryRequests(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}
	return reqs, nil
}

func (r *RequestRepository) FetchContentPool(ctx context.Context) ([]*request.Request, error) {
	reqs, err := r.FetchCDSRequests(ctx)
	if err != nil {
		return nil, err
	}
	return request.SelectPool(reqs), nil
}

// IncrementVotes adds one vote to a stored suggestion in a single statement.
// It returns nil when the request has no suggestion for url.
func (r *RequestRepository) IncrementVotes(ctx context.Context, requestID, url string) (*request.Suggestion, error) {
	var votes int
	err := r.db.QueryRowContext(ctx, `
		UPDATE suggestions SET votes = votes + 1
		WHERE request_id = ? AND url = ?
		RETURNING votes
	`, requestID, url).Scan(&votes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment votes: %w", err)
	}

	return &request.Suggestion{RequestID: requestID, URL: url, Votes: votes}, nil
}

func (r *RequestRepository) GetRequestCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// GetRequestStats returns the total number of requests and how many of them
// have been broadcast.
func (r *RequestRepository) GetRequestStats(ctx context.Context) (total, broadcast int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(broadcast), 0) FROM requests
	`).Scan(&total, &broadcast)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get request stats: %w", err)
	}
	return total, broadcast, nil
}

func (r *RequestRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saveRequest(ctx context.Context, tx *sql.Tx, req *request.Request) error {
	stored, err := writeRequestRow(ctx, tx, req)
	if err != nil {
		return err
	}

	for i := stored; i < len(req.Revisions); i++ {
		rev := req.Revisions[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO revisions (request_id, idx, text_content, content_language, language, topic)
			VALUES (?, ?, ?, ?, ?, ?)
		`, req.ID, i, rev.TextContent, rev.ContentLanguage, rev.Language, rev.Topic)
		if err != nil {
			return fmt.Errorf("failed to save revision %d of request %s: %w", i, req.ID, err)
		}
	}

	for i, s := range req.Suggestions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO suggestions (request_id, position, url, votes)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (request_id, url) DO NOTHING
		`, req.ID, i, s.URL, s.Votes)
		if err != nil {
			return fmt.Errorf("failed to save suggestion of request %s: %w", req.ID, err)
		}
	}

	return nil
}

// writeRequestRow inserts a new request or updates one still at req.Version,
// and returns how many revisions were already stored.
func writeRequestRow(ctx context.Context, tx *sql.Tx, req *request.Request) (int, error) {
	if req.Version == 0 {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO requests (
				id, adaptor_name, adaptor_source, adaptor_trusted,
				content_type, content_format, world,
				posted, processed, broadcast, current_revision, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT (id) DO NOTHING
		`, req.ID, req.AdaptorName, req.AdaptorSource, req.AdaptorTrusted,
			req.ContentType, req.ContentFormat, req.World,
			req.Posted.UnixNano(), req.Processed.UnixNano(), req.Broadcast, req.CurrentRevision)
		if err != nil {
			return 0, fmt.Errorf("failed to save request %s: %w", req.ID, err)
		}
		if err := expectOneRow(result, req.ID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE requests SET
			adaptor_name = ?, adaptor_source = ?, adaptor_trusted = ?,
			content_type = ?, content_format = ?, world = ?,
			posted = ?, processed = ?, broadcast = ?, current_revision = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`, req.AdaptorName, req.AdaptorSource, req.AdaptorTrusted,
		req.ContentType, req.ContentFormat, req.World,
		req.Posted.UnixNano(), req.Processed.UnixNano(), req.Broadcast, req.CurrentRevision,
		req.ID, req.Version)
	if err != nil {
		return 0, fmt.Errorf("failed to save request %s: %w", req.ID, err)
	}
	if err := expectOneRow(result, req.ID); err != nil {
		return 0, err
	}

	var stored int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions WHERE request_id = ?`, req.ID).Scan(&stored)
	if err != nil {
		return 0, fmt.Errorf("failed to count revisions of request %s: %w", req.ID, err)
	}
	if stored > len(req.Revisions) {
		return 0, fmt.Errorf("%w: %s has %d stored revisions, copy has %d",
			request.ErrConflict, req.ID, stored, len(req.Revisions))
	}
	return stored, nil
}

func expectOneRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: %s", request.ErrConflict, id)
	}
	return nil
}

// queryRequests runs a request row query and attaches revisions and
// suggestions. Rows are drained before child queries run on the single
// connection.
func (r *RequestRepository) queryRequests(ctx context.Context, query sq.SelectBuilder) ([]*request.Request, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}

	var reqs []*request.Request
	for rows.Next() {
		var req request.Request
		var posted, processed int64
		err := rows.Scan(&req.ID, &req.AdaptorName, &req.AdaptorSource, &req.AdaptorTrusted,
			&req.ContentType, &req.ContentFormat, &req.World,
			&posted, &processed, &req.Broadcast, &req.CurrentRevision, &req.Version)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		req.Posted = fromUnixNano(posted)
		req.Processed = fromUnixNano(processed)
		reqs = append(reqs, &req)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.loadChildren(ctx, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *RequestRepository) loadChildren(ctx context.Context, reqs []*request.Request) error {
	byID := make(map[string]*request.Request, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		byID[req.ID] = req
		ids = append(ids, req.ID)
	}

	for start := 0; start < len(ids); start += childBatchSize {
		batch := ids[start:min(start+childBatchSize, len(ids))]

		if err := r.loadRevisions(ctx, batch, byID); err != nil {
			return err
		}
		if err := r.loadSuggestions(ctx, batch, byID); err != nil {
			return err
		}
	}
	return nil
}

func (r *RequestRepository) loadRevisions(ctx context.Context, ids []string, byID map[string]*request.Request) error {
	sqlStr, args, err := sq.Select("request_id", "text_content", "content_language", "language", "topic").
		From("revisions").
		Where(sq.Eq{"request_id": ids}).
		OrderBy("request_id", "idx").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revisions query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var requestID string
		var rev request.ContentRevision
		if err := rows.Scan(&requestID, &rev.TextContent, &rev.ContentLanguage, &rev.Language, &rev.Topic); err != nil {
			return fmt.Errorf("failed to scan revision: %w", err)
		}
		if req, ok := byID[requestID]; ok {
			req.Revisions = append(req.Revisions, rev)
		}
	}
	return rows.Err()
}

func (r *RequestRepository) loadSuggestions(ctx context.Context, ids []string, byID map[string]*request.Request) error {
	sqlStr, args, err := sq.Select("request_id", "url", "votes").
		From("suggestions").
		Where(sq.Eq{"request_id": ids}).
		OrderBy("request_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build suggestions query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &request.Suggestion{}
		if err := rows.Scan(&s.RequestID, &s.URL, &s.Votes); err != nil {
			return fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if req, ok := byID[s.RequestID]; ok {
			req.Suggestions = append(req.Suggestions, s)
		}
	}
	return rows.Err()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
