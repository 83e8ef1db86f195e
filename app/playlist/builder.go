package playlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/request-hub/app/request"
)

type Repository interface {
	// GetOrCreatePlaylist must be atomic per id.
	GetOrCreatePlaylist(ctx context.Context, id string, date time.Time) (*Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	// AppendEntry must atomically flip the request's stored broadcast flag and
	// append the entry. It reports false when the request was already broadcast.
	AppendEntry(ctx context.Context, playlistID string, entry Entry) (bool, error)
}

// Builder appends top suggestions to daily playlists.
type Builder struct {
	repo Repository
	now  func() time.Time
}

func NewBuilder(repo Repository) *Builder {
	return &Builder{repo: repo, now: time.Now}
}

// WithClock replaces the time source used to pick the current day.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) CurrentTimestamp() (time.Time, string) {
	return Timestamp(b.now())
}

func (b *Builder) GetCurrent(ctx context.Context) (*Playlist, error) {
	date, key := b.CurrentTimestamp()
	return b.getOrCreate(ctx, key, date)
}

func (b *Builder) Get(ctx context.Context, key string) (*Playlist, error) {
	p, err := b.repo.GetPlaylist(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", key, err)
	}
	return p, nil
}

func (b *Builder) AddToPlaylist(ctx context.Context, req *request.Request) (bool, error) {
	return b.AddToPlaylistOn(ctx, req, b.now())
}

// AddToPlaylistOn appends the request's top suggestion to the playlist of day
// and marks the request broadcast. Broadcast requests and requests without
// suggestions are left untouched and report false.
func (b *Builder) AddToPlaylistOn(ctx context.Context, req *request.Request, day time.Time) (bool, error) {
	if req.Broadcast {
		return false, nil
	}

	top, ok := req.TopSuggestion()
	if !ok {
		slog.Debug("Request has no suggestions, skipping", "request", req.ID)
		return false, nil
	}

	date, key := Timestamp(day)
	if _, err := b.getOrCreate(ctx, key, date); err != nil {
		return false, err
	}

	entry := Entry{RequestID: req.ID, URL: top.URL, AddedAt: b.now().UTC()}
	added, err := b.repo.AppendEntry(ctx, key, entry)
	if err != nil {
		return false, fmt.Errorf("failed to append to playlist %s: %w", key, err)
	}

	req.Broadcast = true
	if !added {
		slog.Debug("Request already broadcast, skipping", "request", req.ID)
		return false, nil
	}
	req.Version++

	slog.Info("Request added to playlist", "playlist", key, "request", req.ID, "url", top.URL, "votes", top.Votes)
	return true, nil
}

// Broadcast adds pool requests to the current playlist in pool order, up to
// limit requests (0 means no limit), and returns the requests it added.
func (b *Builder) Broadcast(ctx context.Context, pool []*request.Request, limit int) ([]*request.Request, error) {
	var added []*request.Request
	for _, req := range pool {
		if limit > 0 && len(added) >= limit {
			break
		}

		ok, err := b.AddToPlaylist(ctx, req)
		if err != nil {
			return added, err
		}
		if ok {
			added = append(added, req)
		}
	}
	return added, nil
}

func (b *Builder) getOrCreate(ctx context.Context, key string, date time.Time) (*Playlist, error) {
	p, err := b.repo.GetOrCreatePlaylist(ctx, key, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create playlist %s: %w", key, err)
	}
	return p, nil
}
