package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashCache is a read-through cache over the backend's per-revision prior
// hash set, so repeated diffs of a fast-moving revision do not re-query
// Postgres for an unchanged set on every run. A miss falls through to the
// supplied loader (the backend reporter's own query).
type HashCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewHashCache(rdb *redis.Client, ttl time.Duration) *HashCache {
	if ttl == 0 {
		ttl = time.Minute
	}
	return &HashCache{rdb: rdb, ttl: ttl}
}

func cacheKey(revisionProviderID string) string {
	return "code-review:prior-hashes:" + revisionProviderID
}

type Loader func(ctx context.Context, revisionProviderID string) (map[string]struct{}, error)

// Get returns the prior-hash set for a revision, serving from Redis when
// fresh and populating it from load on a miss.
func (c *HashCache) Get(ctx context.Context, revisionProviderID string, load Loader) (map[string]struct{}, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, cacheKey(revisionProviderID)).Bytes()
		if err == nil {
			var hashes []string
			if jsonErr := json.Unmarshal(raw, &hashes); jsonErr == nil {
				return toSet(hashes), nil
			}
		}
	}

	hashes, err := load(ctx, revisionProviderID)
	if err != nil {
		return nil, fmt.Errorf("load prior hashes: %w", err)
	}

	if c.rdb != nil {
		if encoded, err := json.Marshal(fromSet(hashes)); err == nil {
			_ = c.rdb.Set(ctx, cacheKey(revisionProviderID), encoded, c.ttl).Err()
		}
	}
	return hashes, nil
}

func toSet(hashes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[h] = struct{}{}
	}
	return out
}

func fromSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}
