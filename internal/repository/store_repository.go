package repository

import (
	"context"
	"errors"
	"fmt"

	"food-market/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// storeRepository implements the StoreRepository interface using PostgreSQL.
type storeRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStoreRepository creates a new PostgreSQL-backed store repository.
func NewStoreRepository(pool *pgxpool.Pool, logger zerolog.Logger) StoreRepository {
	return &storeRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "store").Logger(),
	}
}

// GetByID retrieves a single store by its ID.
func (r *storeRepository) GetByID(ctx context.Context, id string) (*model.Store, error) {
	query := `
		SELECT id, name, delivery_fee, min_order_amount
		FROM stores
		WHERE id = $1
	`

	var store model.Store
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&store.ID,
		&store.Name,
		&store.DeliveryFee,
		&store.MinOrderAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("store_id", id).Msg("store not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("store_id", id).Msg("failed to query store")
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	return &store, nil
}

// Upsert inserts a store or replaces its name and pricing settings.
func (r *storeRepository) Upsert(ctx context.Context, store *model.Store) error {
	query := `
		INSERT INTO stores (id, name, delivery_fee, min_order_amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    delivery_fee = EXCLUDED.delivery_fee,
		    min_order_amount = EXCLUDED.min_order_amount
	`

	if _, err := r.pool.Exec(ctx, query, store.ID, store.Name, store.DeliveryFee, store.MinOrderAmount); err != nil {
		r.logger.Error().Err(err).Str("store_id", store.ID).Msg("failed to upsert store")
		return fmt.Errorf("failed to upsert store: %w", err)
	}

	return nil
}
