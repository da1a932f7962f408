package repository

import (
	"context"
	"errors"
	"time"

	"food-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrDuplicateOrderNumber is returned when a generated order number is already taken.
	ErrDuplicateOrderNumber = errors.New("order number already exists")

	// ErrVersionMismatch is returned when a conditional update finds the order
	// at a different version than the caller read.
	ErrVersionMismatch = errors.New("order version mismatch")
)

// StatusUpdate describes a conditional status write.
type StatusUpdate struct {
	OrderID         uuid.UUID
	Status          model.Status
	DeliveredAt     *time.Time
	UpdatedAt       time.Time
	ExpectedVersion int
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// Returns ErrDuplicateOrderNumber when the order number is taken.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the items of one order, preserving their order.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List returns orders matching the filter, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus applies a status change only if the stored version still
	// equals ExpectedVersion, returning the new version.
	UpdateStatus(ctx context.Context, update StatusUpdate) (int, error)
}

// StoreRepository defines the interface for store data access operations.
type StoreRepository interface {
	// GetByID retrieves a store. Returns nil when not found.
	GetByID(ctx context.Context, id string) (*model.Store, error)

	// Upsert inserts or replaces a store's pricing settings.
	Upsert(ctx context.Context, store *model.Store) error
}
