// Package repository defines the interfaces for the data persistence
// layer. These interfaces abstract the underlying database implementation
// from the service layer and from the backend reporter.
package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/domain"
)

// RepositoryRepository defines the contract for domain.Repository rows.
type RepositoryRepository interface {
	// EnsureBySlug creates the Repository if absent, by natural key (slug).
	EnsureBySlug(ctx context.Context, repo domain.Repository) (*domain.Repository, error)

	// GetBySlug returns apperrors.ErrNotFound when no such repository exists.
	GetBySlug(ctx context.Context, slug string) (*domain.Repository, error)

	List(ctx context.Context, limit, offset int) ([]domain.Repository, error)
}

// RevisionRepository defines the contract for domain.Revision rows.
type RevisionRepository interface {
	// EnsureByProviderID creates or updates title/bug id by natural key
	// (provider, provider_id); ids are immutable.
	EnsureByProviderID(ctx context.Context, tx *sqlx.Tx, rev domain.Revision) (*domain.Revision, error)

	GetByID(ctx context.Context, id int) (*domain.Revision, error)
}

// DiffRepository defines the contract for domain.Diff rows, following the
// CQRS pattern: identity-on-conflict writes, paginated reads.
type DiffRepository interface {
	// EnsureByReviewTaskID creates the Diff if absent, or returns the
	// existing row by natural key (review_task_id) — identity, not conflict.
	EnsureByReviewTaskID(ctx context.Context, tx *sqlx.Tx, diff domain.Diff) (*domain.Diff, error)

	GetByID(ctx context.Context, id int) (*domain.Diff, error)

	List(ctx context.Context, f ListFilter) ([]domain.Diff, error)

	ListByRevision(ctx context.Context, revisionID, limit, offset int) ([]domain.Diff, error)
}

// ListFilter narrows GET /v1/diff/ per spec.md §6.
type ListFilter struct {
	Search     string
	Repository string
	Issues     string // "no" | "any" | "publishable"
	Limit      int
	Offset     int
}

// IssueRepository defines the contract for domain.Issue rows and the
// stats/history aggregates of spec.md §9.
type IssueRepository interface {
	// EnsureByHash bulk-inserts issues by natural key (hash); conflict keeps
	// the stored row. Returns the persisted rows keyed by hash.
	EnsureByHash(ctx context.Context, tx *sqlx.Tx, issues []domain.Issue) (map[string]domain.Issue, error)

	ListByDiff(ctx context.Context, diffID, limit, offset int) ([]domain.Issue, error)

	ListByCheck(ctx context.Context, repositorySlug, analyzer, check string, publishableOnly bool, limit, offset int) ([]domain.Issue, error)

	// PriorHashes returns the hashes already linked to any diff of the
	// given revision, consumed by classify.NewForRevision.
	PriorHashes(ctx context.Context, revisionID int) (map[string]struct{}, error)

	Stats(ctx context.Context, since sql.NullTime) ([]domain.CheckStat, error)

	History(ctx context.Context, repositorySlug, analyzer, check string, since sql.NullTime) ([]domain.CheckHistoryPoint, error)

	DeleteOlderThanWithNoPublishableLinks(ctx context.Context, tx *sqlx.Tx, cutoff sql.NullTime) (int64, error)
}

// IssueLinkRepository defines the contract for the per-diff association
// rows glueing Issues to Diffs (spec.md §3).
type IssueLinkRepository interface {
	// ReplaceForDiff bulk-inserts diffID's links, replacing flags on
	// conflict, and deletes any existing link for diffID absent from
	// links, guaranteeing I5's exact-equality invariant.
	ReplaceForDiff(ctx context.Context, tx *sqlx.Tx, diffID int, links []domain.IssueLink) error
}
