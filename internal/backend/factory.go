// Package backend selects and constructs the persistence backend from
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/config"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	storagemongo "fintrack/internal/storage/mongo"
	storagesqlite "fintrack/internal/storage/sqlite"
)

// Open builds the storage.Repository named by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "sqlite":
		repo, err := storagesqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil

	case "mongo":
		repo, err := storagemongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize mongo backend: %w", err)
		}
		logger.Info("Initialized MongoDB backend", "database", cfg.MongoDatabase)
		return repo, nil

	case "memory", "":
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	}

	return nil, fmt.Errorf("invalid backend type: %s", cfg.Backend)
}
