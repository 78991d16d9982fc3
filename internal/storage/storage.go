package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Storage is the interface for all product sinks.
type Storage interface {
	// Store persists a batch of products.
	Store(products []types.Product) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the configured sink. Type may be a comma-separated list of
// backends, in which case every write fans out to all of them.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	kinds := strings.Split(cfg.Type, ",")
	if len(kinds) == 1 {
		return newBackend(strings.TrimSpace(kinds[0]), cfg, logger)
	}

	backends := make([]Storage, 0, len(kinds))
	for _, kind := range kinds {
		b, err := newBackend(strings.TrimSpace(kind), cfg, logger)
		if err != nil {
			for _, opened := range backends {
				opened.Close()
			}
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewMultiStorage(backends, logger), nil
}

func newBackend(kind string, cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch kind {
	case "csv":
		return NewCSVStorage(cfg.Path, logger)
	case "json":
		return NewJSONStorage(withExt(cfg.Path, ".json"), logger)
	case "jsonl":
		return NewJSONLStorage(withExt(cfg.Path, ".jsonl"), logger)
	case "mongo":
		return NewMongoStorage(&cfg.Mongo, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", kind)
	}
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
