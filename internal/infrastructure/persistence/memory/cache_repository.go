// Package memory provides an in-process cache repository for single-instance
// deployments and local development.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/recipesimplifier/api/internal/ports/outbound"
)

// CacheRepository implements outbound.CacheRepository on go-cache.
type CacheRepository struct {
	store      *gocache.Cache
	defaultTTL time.Duration
}

// NewCacheRepository creates a cache whose entries expire after defaultTTL
// unless Set is given a TTL, and are swept every cleanupInterval.
func NewCacheRepository(defaultTTL, cleanupInterval time.Duration) outbound.CacheRepository {
	return &CacheRepository{
		store:      gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
	}
}

func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
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

func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	// copy so callers may reuse their buffer
	stored := make([]byte, len(value))
	copy(stored, value)
	r.store.Set(key, stored, ttl)
	return nil
}

func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.store.Delete(key)
	return nil
}

func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := r.store.Get(key)
	return ok, nil
}
