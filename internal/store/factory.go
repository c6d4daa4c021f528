package store

import (
	"context"
	"fmt"

	mydb "github.com/crmkit/segmint/internal/db"
)

// NewStore creates a new store based on the given store type.
// Supported types: "memory", "postgres". capacity bounds the memory store.
func NewStore(ctx context.Context, storeType, dbDSN string, capacity int) (Store, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(capacity), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
