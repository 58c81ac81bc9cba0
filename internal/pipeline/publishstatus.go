package pipeline

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mozilla/code-review/internal/domain"
)

// PublishStatus implements platform.BuildStatusChecker over the same Redis
// instance as RevisionLock/HashCache: once a diff's platform comment has
// been posted, a marker is set so a retried run never double-posts.
type PublishStatus struct {
	rdb *redis.Client
}

func NewPublishStatus(rdb *redis.Client) *PublishStatus {
	return &PublishStatus{rdb: rdb}
}

// publishKey keys the marker by the diff's review task id, its natural key,
// which is known on the first run as well as on retries (Diff.ID is only
// set once the diff has been persisted).
func publishKey(diff domain.Diff) string {
	return fmt.Sprintf("code-review:published:review-task:%s", diff.ReviewTaskID)
}

// IsTerminal reports whether diff's platform build object is already
// terminal. A diff without a review task id has no marker and is reported
// as not terminal.
func (p *PublishStatus) IsTerminal(ctx context.Context, diff domain.Diff) (bool, error) {
	if diff.ReviewTaskID == "" {
		return false, nil
	}
	n, err := p.rdb.Exists(ctx, publishKey(diff)).Result()
	if err != nil {
		return false, fmt.Errorf("check publish status: %w", err)
	}
	return n > 0, nil
}

// MarkPublished records diff's platform build object as terminal. Callers
// invoke this after a successful platform.Reporter.Report.
func (p *PublishStatus) MarkPublished(ctx context.Context, diff domain.Diff) error {
	if err := p.rdb.Set(ctx, publishKey(diff), "1", 0).Err(); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
