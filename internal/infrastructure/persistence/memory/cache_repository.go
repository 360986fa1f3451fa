// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

const (
	defaultExpiration = 24 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// CacheRepository implements outbound.CacheRepository on top of go-cache.
// It is used when Redis is disabled and in tests.
type CacheRepository struct {
	store *cache.Cache
}

// NewCacheRepository creates a new in-memory cache repository
func NewCacheRepository() *CacheRepository {
	return &CacheRepository{store: cache.New(defaultExpiration, cleanupInterval)}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value from cache
func (r *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := r.store.Get(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	return data, nil
}

// Set stores value with ttl. A zero ttl means the default expiration.
func (r *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	r.store.Set(key, stored, ttl)
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(_ context.Context, key string) error {
	r.store.Delete(key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(_ context.Context, key string) (bool, error) {
	_, ok := r.store.Get(key)
	return ok, nil
}

// Flush drops every entry.
func (r *CacheRepository) Flush() {
	r.store.Flush()
}
