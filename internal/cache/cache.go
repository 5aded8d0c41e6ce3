package cache

import (
	"context"
	"errors"

	"salespulse/backend/internal/domain"
)

// ErrSchemaMismatch marks a persisted snapshot in an unrecognized shape.
// Callers treat it as a cache miss (cold start), never as a fatal failure.
var ErrSchemaMismatch = errors.New("snapshot schema mismatch")

// SnapshotCache persists one CacheSnapshot per analysis scope. Put replaces
// the whole value; consumers never observe a partially written snapshot.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*domain.CacheSnapshot, bool, error)
	Put(ctx context.Context, key string, snapshot *domain.CacheSnapshot) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string) (*domain.CacheSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Put(_ context.Context, _ string, _ *domain.CacheSnapshot) error {
	return nil
}
