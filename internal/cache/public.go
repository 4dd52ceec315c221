// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// public.go provides a Valkey-backed cache for the public widget
// responses. The approved-testimonial list and the dashboard stats are
// read far more often than they change, so the serialized JSON is stored
// in Valkey and every moderation decision invalidates it.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// publicKeyPrefix is the Valkey key prefix for cached public responses.
	publicKeyPrefix = "public:"

	// DefaultPublicTTL is how long a cached response stays fresh without
	// an explicit invalidation.
	DefaultPublicTTL = 5 * time.Minute
)

// PublicCache manages cached JSON responses for the public API in Valkey.
type PublicCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPublicCache creates a public response cache backed by the given
// Valkey client.
func NewPublicCache(client *redis.Client, ttl time.Duration) *PublicCache {
	if ttl == 0 {
		ttl = DefaultPublicTTL
	}
	return &PublicCache{client: client, ttl: ttl}
}

// Get retrieves a cached JSON payload. Returns false on miss.
func (pc *PublicCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, publicKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("public cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("public cache hit", "key", key)
	return val, true
}

// Set stores a JSON payload with the configured TTL.
func (pc *PublicCache) Set(ctx context.Context, key string, payload []byte) {
	if err := pc.client.Set(ctx, publicKeyPrefix+key, payload, pc.ttl).Err(); err != nil {
		slog.Warn("public cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached public response by scanning for the
// prefix. Called after every moderation decision, since any cached list
// or stat count could be stale.
func (pc *PublicCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, publicKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("public cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("public cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("public cache cleared", "deleted", deleted)
	}
}

// ApprovedKey returns the cache key for the approved list at a limit.
func ApprovedKey(limit int) string {
	return "approved:" + strconv.Itoa(limit)
}

// StatsKey returns the cache key for the dashboard stats payload.
func StatsKey() string {
	return "stats"
}
