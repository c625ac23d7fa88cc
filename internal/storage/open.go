package storage

import (
	"context"
	"fmt"

	"unosync/internal/config"
	"unosync/internal/ports"
)

// Store is a KVStore that owns resources.
type Store interface {
	ports.KVStore
	Close() error
}

// Open builds the backend selected in cfg.
func Open(ctx context.Context, cfg *config.ClientConfig) (Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath)
	case config.StorageRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
