package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Redis shares the cached document between service instances. The document is
// stored as JSON under a single key with the TTL of the read that filled it.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis creates a Redis-backed cache. Key may be empty.
func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = "content:current"
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) GetOrRefresh(ctx context.Context, ttl time.Duration, load Loader) (*content.Document, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err == nil {
		var doc content.Document
		if jerr := json.Unmarshal(b, &doc); jerr == nil {
			metrics.ContentCacheLookups.WithLabelValues("redis", "hit").Inc()
			return &doc, nil
		}
		// unreadable entry: fall through and overwrite it
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not take reads down with it
		return load(ctx)
	}
	metrics.ContentCacheLookups.WithLabelValues("redis", "miss").Inc()

	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return doc, nil
	}
	if enc, err := json.Marshal(doc); err == nil {
		_ = r.client.Set(ctx, r.key, enc, ttl).Err()
	}
	return doc, nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
