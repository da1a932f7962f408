package storedir

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"food-market/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many lines are decoded between context checks.
const cancelCheckInterval = 10_000

// Snapshot is an immutable set of stores keyed by id.
type Snapshot struct {
	stores map[string]model.Store
}

// NewSnapshot builds a snapshot from stores; later duplicates win.
func NewSnapshot(stores ...model.Store) *Snapshot {
	s := &Snapshot{stores: make(map[string]model.Store, len(stores))}
	for _, store := range stores {
		s.stores[store.ID] = store
	}
	return s
}

// Get returns the store with the given id.
func (s *Snapshot) Get(id string) (model.Store, bool) {
	store, ok := s.stores[id]
	return store, ok
}

// Size returns the number of stores in the snapshot.
func (s *Snapshot) Size() int {
	return len(s.stores)
}

// decodeSnapshot reads gzipped JSON lines, one store per line. Blank lines are skipped.
func decodeSnapshot(ctx context.Context, r io.Reader, source string) (*Snapshot, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	snapshot := NewSnapshot()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var store model.Store
		if err := json.Unmarshal([]byte(line), &store); err != nil {
			return nil, fmt.Errorf("invalid store record at %s:%d: %w", source, lineNo, err)
		}
		if store.ID == "" {
			return nil, fmt.Errorf("store record without id at %s:%d", source, lineNo)
		}
		if store.DeliveryFee.IsNegative() || store.MinOrderAmount.IsNegative() {
			return nil, fmt.Errorf("store %s has negative pricing at %s:%d", store.ID, source, lineNo)
		}
		snapshot.stores[store.ID] = store
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading store snapshot %s: %w", source, err)
	}

	return snapshot, nil
}

// snapshotDirectory serves lookups from shards merged at start-up.
type snapshotDirectory struct {
	snapshot *Snapshot
	logger   zerolog.Logger
}

// NewSnapshotDirectory loads every shard concurrently and merges them in path
// order, so a store in a later shard overrides the same store in an earlier one.
func NewSnapshotDirectory(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (Directory, error) {
	logger = logger.With().Str("component", "store-directory").Logger()

	logger.Info().Int("shard_count", len(paths)).Msg("loading store snapshot")

	shards := make([]*Snapshot, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			shard, err := loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load store shard %s: %w", path, err)
			}
			shards[i] = shard
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("store snapshot load failed")
		return nil, err
	}

	merged := NewSnapshot()
	for i, shard := range shards {
		for id, store := range shard.stores {
			merged.stores[id] = store
		}
		logger.Debug().Str("shard", paths[i]).Int("size", shard.Size()).Msg("store shard merged")
	}

	logger.Info().Int("stores", merged.Size()).Msg("store snapshot loaded")

	return &snapshotDirectory{snapshot: merged, logger: logger}, nil
}

func (d *snapshotDirectory) Lookup(_ context.Context, storeID string) (*model.Store, error) {
	store, ok := d.snapshot.Get(storeID)
	if !ok {
		d.logger.Debug().Str("store_id", storeID).Msg("store not in snapshot")
		return nil, model.ErrStoreNotFound
	}
	return &store, nil
}
