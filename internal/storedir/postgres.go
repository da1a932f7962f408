package storedir

import (
	"context"
	"fmt"

	"food-market/internal/model"
	"food-market/internal/repository"

	"github.com/rs/zerolog"
)

// postgresDirectory reads stores straight from the stores table.
type postgresDirectory struct {
	repo   repository.StoreRepository
	logger zerolog.Logger
}

// NewPostgresDirectory creates a directory backed by the store repository.
func NewPostgresDirectory(repo repository.StoreRepository, logger zerolog.Logger) Directory {
	return &postgresDirectory{
		repo:   repo,
		logger: logger.With().Str("component", "store-directory").Logger(),
	}
}

func (d *postgresDirectory) Lookup(ctx context.Context, storeID string) (*model.Store, error) {
	store, err := d.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up store: %w", err)
	}
	if store == nil {
		d.logger.Debug().Str("store_id", storeID).Msg("store not found")
		return nil, model.ErrStoreNotFound
	}
	return store, nil
}
