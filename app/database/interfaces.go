package database

import (
	"context"
	"time"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
	"github.com/lysyi3m/request-hub/app/request"
)

type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*request.Request, error)
	GetRequestCount(ctx context.Context) (int, error)
	GetRequestStats(ctx context.Context) (total, broadcast int, err error)
	FetchCDSRequests(ctx context.Context) ([]*request.Request, error)
	FetchContentPool(ctx context.Context) ([]*request.Request, error)

	SaveRequest(ctx context.Context, r *request.Request) error
	SaveRequests(ctx context.Context, rs []*request.Request) error
	DeleteRequest(ctx context.Context, id string) (bool, error)
	IncrementVotes(ctx context.Context, requestID, url string) (*request.Suggestion, error)

	SaveHarvested(ctx context.Context, adaptorName string, items []harvest.Harvested) error
	SeenItems(ctx context.Context, adaptorName string, hashes []string) (map[string]bool, error)
}

type PlaylistStore interface {
	GetOrCreatePlaylist(ctx context.Context, id string, date time.Time) (*playlist.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)
	AppendEntry(ctx context.Context, playlistID string, entry playlist.Entry) (bool, error)
	ListPlaylists(ctx context.Context, limit int) ([]playlist.Playlist, error)
}

type HarvestStore interface {
	UpsertHarvest(ctx context.Context, adaptorName string, timestamp time.Time) error
	GetHarvest(ctx context.Context, adaptorName string) (*harvest.Record, error)
}

type AdaptorStore interface {
	UpsertAdaptor(ctx context.Context, a *adaptor.RemoteAdaptor) error
	GetAdaptor(ctx context.Context, name string) (*adaptor.RemoteAdaptor, error)
	GetAdaptorByAPIKey(ctx context.Context, apiKey string) (*adaptor.RemoteAdaptor, error)
	ListAdaptors(ctx context.Context) ([]adaptor.RemoteAdaptor, error)
}

var (
	_ RequestStore        = (*RequestRepository)(nil)
	_ PlaylistStore       = (*PlaylistRepository)(nil)
	_ playlist.Repository = (*PlaylistRepository)(nil)
	_ HarvestStore        = (*HarvestRepository)(nil)
	_ harvest.Repository  = (*HarvestRepository)(nil)
	_ AdaptorStore        = (*AdaptorRepository)(nil)
	_ adaptor.Repository  = (*AdaptorRepository)(nil)
)
