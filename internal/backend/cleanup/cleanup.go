// Package cleanup mirrors the original's management/commands/cleanup_issues
// job: it periodically prunes Issues (and their IssueLinks, by FK cascade)
// older than a retention window that no longer back any publishable link.
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/repository"
)

// Job runs one retention sweep inside a single transaction, matching the
// teacher's BaseService.transaction pattern for multi-statement writes.
type Job struct {
	db      *sqlx.DB
	log     *slog.Logger
	issues  repository.IssueRepository
	maxAge  time.Duration
}

func New(db *sqlx.DB, log *slog.Logger, issues repository.IssueRepository, maxAge time.Duration) *Job {
	return &Job{db: db, log: log, issues: issues, maxAge: maxAge}
}

// Run deletes every issue older than the retention window with no
// remaining publishable link, returning the number of rows removed.
func (j *Job) Run(ctx context.Context) (int64, error) {
	const op = "internal.backend.cleanup.Run"

	cutoff := sql.NullTime{Time: time.Now().Add(-j.maxAge), Valid: true}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := j.issues.DeleteOlderThanWithNoPublishableLinks(ctx, tx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: delete stale issues: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	j.log.Info("cleanup sweep complete", slog.Int64("deleted", n), slog.Duration("max_age", j.maxAge))
	return n, nil
}
