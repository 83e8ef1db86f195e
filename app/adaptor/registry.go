package adaptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotFound   = errors.New("adaptor not found")
	ErrInvalidKey = errors.New("invalid adaptor API key")
)

type Repository interface {
	UpsertAdaptor(ctx context.Context, a *RemoteAdaptor) error
	GetAdaptor(ctx context.Context, name string) (*RemoteAdaptor, error)
	GetAdaptorByAPIKey(ctx context.Context, apiKey string) (*RemoteAdaptor, error)
	ListAdaptors(ctx context.Context) ([]RemoteAdaptor, error)
}

// Registry persists remote adaptors and owns their API keys.
type Registry struct {
	repo   Repository
	issuer *KeyIssuer
}

func NewRegistry(repo Repository, issuer *KeyIssuer) *Registry {
	return &Registry{repo: repo, issuer: issuer}
}

// Save upserts the adaptor. An adaptor without a key keeps the stored one, or
// gets a fresh key on its first save.
func (r *Registry) Save(ctx context.Context, a *RemoteAdaptor) error {
	if a.APIKey == "" {
		existing, err := r.repo.GetAdaptor(ctx, a.Name)
		if err != nil {
			return fmt.Errorf("failed to check existing adaptor: %w", err)
		}

		if existing != nil && existing.APIKey != "" {
			a.APIKey = existing.APIKey
		} else {
			if err := r.issuer.RenewKey(a); err != nil {
				return fmt.Errorf("failed to issue API key: %w", err)
			}
			slog.Info("API key issued", "adaptor", a.Name)
		}
	}

	if err := r.repo.UpsertAdaptor(ctx, a); err != nil {
		return fmt.Errorf("failed to save adaptor: %w", err)
	}
	return nil
}

func (r *Registry) Renew(ctx context.Context, name string) (*RemoteAdaptor, error) {
	a, err := r.repo.GetAdaptor(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get adaptor: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := r.issuer.RenewKey(a); err != nil {
		return nil, fmt.Errorf("failed to renew API key: %w", err)
	}
	if err := r.repo.UpsertAdaptor(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save adaptor: %w", err)
	}

	slog.Info("API key renewed", "adaptor", a.Name)
	return a, nil
}

func (r *Registry) Authenticate(ctx context.Context, apiKey string) (*RemoteAdaptor, error) {
	if apiKey == "" {
		return nil, ErrInvalidKey
	}

	a, err := r.repo.GetAdaptorByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}
	if a == nil {
		return nil, ErrInvalidKey
	}
	return a, nil
}

func (r *Registry) Get(ctx context.Context, name string) (*RemoteAdaptor, error) {
	return r.repo.GetAdaptor(ctx, name)
}

func (r *Registry) List(ctx context.Context) ([]RemoteAdaptor, error) {
	return r.repo.ListAdaptors(ctx)
}
