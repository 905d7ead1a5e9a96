// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// listing.go caches aggregated listing data (category badge counts) in
// Valkey so the GROUP BY query runs at most once per TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// listingKeyPrefix is the Valkey key prefix for listing aggregates.
	listingKeyPrefix = "listing:"

	// countsKey holds the display-name → count map.
	countsKey = listingKeyPrefix + "category_counts"

	// DefaultCountsTTL is how long category counts stay cached.
	DefaultCountsTTL = time.Minute
)

// ListingCache stores listing aggregates in Valkey. All methods are best
// effort: errors are logged and reported as a miss.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListingCache creates a listing cache backed by the given Valkey client.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultCountsTTL
	}
	return &ListingCache{client: client, ttl: ttl}
}

// Counts returns the cached category counts, if present.
func (lc *ListingCache) Counts(ctx context.Context) (map[string]int, bool) {
	val, err := lc.client.Get(ctx, countsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("listing cache get error", "key", countsKey, "error", err)
		return nil, false
	}

	var counts map[string]int
	if err := json.Unmarshal(val, &counts); err != nil {
		slog.Warn("listing cache decode error", "key", countsKey, "error", err)
		return nil, false
	}
	slog.Debug("listing cache hit", "key", countsKey)
	return counts, true
}

// SetCounts stores category counts with the configured TTL.
func (lc *ListingCache) SetCounts(ctx context.Context, counts map[string]int) {
	data, err := json.Marshal(counts)
	if err != nil {
		slog.Warn("listing cache encode error", "error", err)
		return
	}
	if err := lc.client.Set(ctx, countsKey, data, lc.ttl).Err(); err != nil {
		slog.Warn("listing cache set error", "key", countsKey, "error", err)
	}
}

// Invalidate removes every cached listing aggregate. Called after article
// or category writes.
func (lc *ListingCache) Invalidate(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := lc.client.Scan(ctx, cursor, listingKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("listing cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := lc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("listing cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("listing cache cleared", "deleted", deleted)
	}
}
