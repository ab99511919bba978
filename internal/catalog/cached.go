package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedSource keeps successful fetches in Redis for ttl. Cache failures
// fall through to the wrapped source.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSource wraps next with a Redis cache.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, client: client, ttl: ttl}
}

func cacheKey(kind Kind, params url.Values) string {
	return "compass:catalog:" + string(kind) + ":" + params.Encode()
}

func (c *CachedSource) Fetch(ctx context.Context, kind Kind, params url.Values) ([]Record, error) {
	key := cacheKey(kind, params)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []Record
		if err := json.Unmarshal(data, &records); err == nil {
			slog.Debug("catalog cache hit", "kind", kind)
			return records, nil
		}
		slog.Warn("catalog cache entry is corrupt", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("catalog cache read failed", "key", key, "error", err)
	}

	records, err := c.next.Fetch(ctx, kind, params)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("catalog cache write failed", "key", key, "error", err)
		}
	}
	return records, nil
}
