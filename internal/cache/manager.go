// Package cache keeps parse results keyed by input content and tool, in
// memory and on disk, so unchanged logs are not parsed twice.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultExpiration uses the expiration the manager was created with.
	DefaultExpiration = gocache.DefaultExpiration
	// NoExpiration keeps an item until it is deleted.
	NoExpiration = gocache.NoExpiration
	// DefaultCleanupInterval is how often expired items are purged.
	DefaultCleanupInterval = 10 * time.Minute
)

// CacheManager is a typed key/value cache with per-item expiration.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetMultiple(ctx context.Context, keys []K) (map[K]V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}

// InMemoryCacheManager implements CacheManager on top of go-cache.
type InMemoryCacheManager[K ~string, V any] struct {
	name  string
	cache *gocache.Cache
}

var _ CacheManager[string, int] = (*InMemoryCacheManager[string, int])(nil)

// NewInMemoryCacheManager creates a named in-memory cache. The name only
// shows up in logs.
func NewInMemoryCacheManager[K ~string, V any](name string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		name:  name,
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Name returns the cache name.
func (m *InMemoryCacheManager[K, V]) Name() string { return m.name }

// Get returns the value for key. Values of the wrong type count as misses.
func (m *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	raw, ok := m.cache.Get(string(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// GetMultiple returns the values found for keys. The bool is false when
// none of the keys were found.
func (m *InMemoryCacheManager[K, V]) GetMultiple(ctx context.Context, keys []K) (map[K]V, bool) {
	var found map[K]V
	for _, key := range keys {
		v, ok := m.Get(ctx, key)
		if !ok {
			continue
		}
		if found == nil {
			found = make(map[K]V, len(keys))
		}
		found[key] = v
	}
	return found, found != nil
}

// GetWithRefresh returns the value for key and resets its expiration to ttl.
func (m *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	v, ok := m.Get(ctx, key)
	if ok {
		m.cache.Set(string(key), v, ttl)
	}
	return v, ok
}

// Set stores value under key for ttl.
func (m *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	m.cache.Set(string(key), value, ttl)
}

// Delete removes keys. Missing keys are ignored.
func (m *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, key := range keys {
		m.cache.Delete(string(key))
	}
	return nil
}

// Flush removes every item.
func (m *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	m.cache.Flush()
	return nil
}

// Len returns the number of items, including expired ones not yet purged.
func (m *InMemoryCacheManager[K, V]) Len() int {
	return m.cache.ItemCount()
}
