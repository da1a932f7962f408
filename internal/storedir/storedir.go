// Package storedir resolves the pricing settings of a store by id.
package storedir

import (
	"context"

	"food-market/internal/model"
)

// Directory looks up stores that orders are placed against.
type Directory interface {
	// Lookup returns the store or model.ErrStoreNotFound.
	Lookup(ctx context.Context, storeID string) (*model.Store, error)
}

// Loader reads one gzipped JSON-lines store snapshot.
type Loader interface {
	Load(ctx context.Context, path string) (*Snapshot, error)
}
