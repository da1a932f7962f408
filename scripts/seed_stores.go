//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"food-market/internal/config"
	"food-market/internal/database"
	"food-market/internal/model"
	"food-market/internal/repository"

	"github.com/shopspring/decimal"
)

// Applies the schema and upserts a few sample stores for STORE_SOURCE=postgres.
// Connection settings come from the same DB_* variables as the API server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	stores := repository.NewStoreRepository(pool, logger)
	for _, s := range []model.Store{
		{ID: "downtown-deli", Name: "Downtown Deli", DeliveryFee: decimal.RequireFromString("2.50"), MinOrderAmount: decimal.RequireFromString("8.00")},
		{ID: "harbour-sushi", Name: "Harbour Sushi", DeliveryFee: decimal.RequireFromString("3.50"), MinOrderAmount: decimal.RequireFromString("15.00")},
		{ID: "corner-bakery", Name: "Corner Bakery", DeliveryFee: decimal.Zero, MinOrderAmount: decimal.Zero},
	} {
		store := s
		if err := stores.Upsert(ctx, &store); err != nil {
			fmt.Fprintf(os.Stderr, "Upsert of %s failed: %v\n", s.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded store %s (delivery fee %s, minimum %s)\n", s.ID, s.DeliveryFee.StringFixed(2), s.MinOrderAmount.StringFixed(2))
	}
}
