// Package services holds the caching and outbound-notification
// components that sit alongside the domain store. Cache keys here are
// scoped to immutable user identity only. Moderation state (cautions,
// bans, rate-limit counters) is never cached between requests, since
// every request must observe writes made by any other request.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService abstracts Redis and in-memory caching behind one
// interface so the auth gate doesn't care which backend is live.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache is the fallback used when Redis is unreachable at
// startup, so the server still runs, just without cross-process
// sharing of the token lookup.
type MemoryCache struct {
	store map[string]cacheEntry
}

type cacheEntry struct {
	Value      []byte
	Expiration time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[string]cacheEntry)}
}

func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	entry, exists := m.store[key]
	if !exists {
		return fmt.Errorf("key not found: %s", key)
	}
	if time.Now().After(entry.Expiration) {
		delete(m.store, key)
		return fmt.Errorf("key expired: %s", key)
	}
	return json.Unmarshal(entry.Value, dest)
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = cacheEntry{Value: data, Expiration: time.Now().Add(expiration)}
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store = make(map[string]cacheEntry)
	return nil
}

// RedisCache is the primary cache, shared across server instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key not found: %s", key)
		}
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// AuthTokenCacheKey builds the cache key the auth gate reads and
// writes for a given bearer token.
func AuthTokenCacheKey(token string) string {
	return "authtoken:" + token
}

// CachedIdentity is the only shape ever stored under an
// AuthTokenCacheKey: identity fields that never change after
// /get-token issues them. Moderation and rate-limit fields are
// deliberately absent.
type CachedIdentity struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}
