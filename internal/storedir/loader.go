package storedir

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped snapshot files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based snapshot loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "store-file-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) (*Snapshot, error) {
	l.logger.Info().Str("file", path).Msg("loading store snapshot file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open store snapshot")
		return nil, fmt.Errorf("failed to open store snapshot %s: %w", path, err)
	}
	defer file.Close()

	snapshot, err := decodeSnapshot(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to decode store snapshot")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("stores_loaded", snapshot.Size()).
		Msg("store snapshot file loaded")

	return snapshot, nil
}
