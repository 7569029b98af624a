package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"drummond-geometry/internal/logging"
)

// Memoizer serves computed values from a Store and guarantees at most one
// in-flight computation per key inside this process.
type Memoizer struct {
	store  Store
	group  singleflight.Group
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoizer creates a memoizer over store. A nil store only deduplicates.
func NewMemoizer(store Store) *Memoizer {
	return &Memoizer{store: store, logger: logging.WithComponent("memoizer")}
}

// Hits returns how many loads were served from the store
func (m *Memoizer) Hits() int64 { return m.hits.Load() }

// Misses returns how many loads had to compute
func (m *Memoizer) Misses() int64 { return m.misses.Load() }

// Load returns the value cached under key or runs compute once for all
// concurrent callers of the same key and stores the result for ttl. Store
// errors are logged and never fail the load. Errors from compute are not cached.
func Load[T any](ctx context.Context, m *Memoizer, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if m.store != nil {
		var cached T
		err := m.store.GetJSON(ctx, key, &cached)
		if err == nil {
			m.hits.Add(1)
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.Debug("Cache read failed, computing", "key", key, "error", err)
		}
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.misses.Add(1)
		val, err := compute()
		if err != nil {
			return nil, err
		}
		if m.store != nil {
			if err := m.store.SetJSON(ctx, key, val, ttl); err != nil {
				m.logger.Debug("Cache write failed", "key", key, "error", err)
			}
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
