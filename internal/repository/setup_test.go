package repository

import (
	"context"
	"testing"
	"time"

	"food-market/internal/database"
	"food-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container with the service schema applied.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

// newTestOrder builds a pending order with two items for the given store.
func newTestOrder(storeID string, createdAt time.Time) *model.Order {
	id := uuid.New()
	delivery := model.DeliveryTypeDelivery
	card := model.PaymentMethodCard

	return &model.Order{
		ID:            id,
		OrderNumber:   "ORD-" + id.String()[:8],
		StoreID:       storeID,
		CustomerID:    strPtr("customer-1"),
		PaymentMethod: &card,
		DeliveryType:  &delivery,
		Subtotal:      dec("13.50"),
		DeliveryFee:   dec("2.00"),
		Discount:      decimal.Zero,
		Total:         dec("15.50"),
		Status:        model.StatusPending,
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
		Items: []model.OrderItem{
			{ID: uuid.New(), OrderID: id, ProductID: strPtr("burger"), ProductName: "Burger", Price: dec("5.00"), Quantity: 2},
			{ID: uuid.New(), OrderID: id, ProductName: "Fries", Price: dec("3.50"), Quantity: 1, Notes: strPtr(`["extra salt"]`)},
		},
	}
}
