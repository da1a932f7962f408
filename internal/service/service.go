package service

import (
	"context"
	"time"

	"food-market/internal/model"

	"github.com/google/uuid"
)

// OrderService defines operations on the order lifecycle.
type OrderService interface {
	// CreateOrder prices and persists a new pending order and announces it to the store.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error)

	// GetByID retrieves an order with its items. Returns model.ErrOrderNotFound when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List returns orders matching the filter, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// TransitionStatus moves an order to target. When expectedVersion is set it
	// must match the stored version.
	TransitionStatus(ctx context.Context, id uuid.UUID, target model.Status, expectedVersion *int) (*model.Order, error)
}

// ChannelService issues credentials for store notification channels.
type ChannelService interface {
	// IssueToken returns a channel token for an existing store and its expiry.
	IssueToken(ctx context.Context, storeID string) (string, time.Time, error)
}

// Publisher delivers order events to the store's channel.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

// OrderNumberGenerator produces human-facing order numbers.
type OrderNumberGenerator interface {
	Next() string
}

// TokenIssuer signs channel tokens for a store.
type TokenIssuer interface {
	Issue(storeID string) (string, time.Time, error)
}
