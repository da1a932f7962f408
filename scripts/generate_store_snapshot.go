//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"food-market/internal/model"

	"github.com/shopspring/decimal"
)

// Writes sample store snapshot shards for STORE_SOURCE=snapshot.
// stores-b.jsonl.gz overrides "downtown-deli" from stores-a.jsonl.gz, since
// later shards win.
func main() {
	dataDir := "data/stores"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	shards := []struct {
		file   string
		stores []model.Store
	}{
		{
			file: "stores-a.jsonl.gz",
			stores: []model.Store{
				store("downtown-deli", "Downtown Deli", "2.00", "0"),
				store("harbour-sushi", "Harbour Sushi", "3.50", "15.00"),
				store("corner-bakery", "Corner Bakery", "0", "0"),
			},
		},
		{
			file: "stores-b.jsonl.gz",
			stores: []model.Store{
				store("downtown-deli", "Downtown Deli", "2.50", "8.00"),
				store("night-noodles", "Night Noodles", "1.99", "10.00"),
			},
		},
	}

	for _, shard := range shards {
		filePath := filepath.Join(dataDir, shard.file)

		if err := writeShard(filePath, shard.stores); err != nil {
			log.Fatalf("Failed to create %s: %v", shard.file, err)
		}

		fmt.Printf("Created %s with %d stores\n", filePath, len(shard.stores))
	}

	fmt.Println("\nLoad them with:")
	fmt.Printf("  STORE_SOURCE=snapshot STORE_SNAPSHOT_PATHS=%s,%s\n",
		filepath.Join(dataDir, shards[0].file), filepath.Join(dataDir, shards[1].file))
}

func store(id, name, fee, minimum string) model.Store {
	return model.Store{
		ID:             id,
		Name:           name,
		DeliveryFee:    decimal.RequireFromString(fee),
		MinOrderAmount: decimal.RequireFromString(minimum),
	}
}

func writeShard(filePath string, stores []model.Store) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := json.NewEncoder(gzipWriter)
	for _, s := range stores {
		if err := encoder.Encode(s); err != nil {
			return fmt.Errorf("failed to write store %s: %w", s.ID, err)
		}
	}

	return nil
}
