package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RevisionLock serializes backend writes per revision id (spec.md §5:
// "one in-flight write per revision id") across however many pipeline
// processes share one Redis instance.
type RevisionLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRevisionLock(rdb *redis.Client, ttl time.Duration) *RevisionLock {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &RevisionLock{rdb: rdb, ttl: ttl}
}

func lockKey(revisionProviderID string) string {
	return "code-review:lock:revision:" + revisionProviderID
}

// Acquire blocks (bounded by ctx) until the per-revision lock is held,
// returning a release func. Token-gated so only the holder can release.
func (l *RevisionLock) Acquire(ctx context.Context, revisionProviderID string) (release func(context.Context) error, err error) {
	token := uuid.NewString()
	key := lockKey(revisionProviderID)

	backoff := 100 * time.Millisecond
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire revision lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			if backoff < 2*time.Second {
				backoff *= 2
			}
		}
	}

	release = func(releaseCtx context.Context) error {
		const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`
		return l.rdb.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}
	return release, nil
}
