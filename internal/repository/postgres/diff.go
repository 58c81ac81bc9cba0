package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
)

// DiffRepository persists domain.Diff rows. A Diff is created once per CI
// build and is immutable thereafter (spec.md §3).
type DiffRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewDiffRepository(db *sqlx.DB, log *slog.Logger) *DiffRepository {
	return &DiffRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureByReviewTaskID creates the Diff if absent, or returns the existing
// row by natural key (review_task_id) — identity, not conflict (I4).
func (r *DiffRepository) EnsureByReviewTaskID(ctx context.Context, tx *sqlx.Tx, diff domain.Diff) (*domain.Diff, error) {
	const op = "internal.repository.postgres.EnsureByReviewTaskID"

	query, args, err := r.sq.Insert("diffs").
		Columns("revision_id", "provider_diff_id", "commit_hash", "review_task_id", "repository_id").
		Values(diff.RevisionID, diff.ProviderDiffID, diff.CommitHash, diff.ReviewTaskID, diff.RepositoryID).
		Suffix("ON CONFLICT (review_task_id) DO UPDATE SET review_task_id = EXCLUDED.review_task_id RETURNING id, revision_id, provider_diff_id, commit_hash, review_task_id, repository_id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var created domain.Diff
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&created); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" {
				return nil, fmt.Errorf("%s: %w: revision %d not found", op, apperrors.ErrNotFound, diff.RevisionID)
			}
		}
		return nil, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}
	return &created, nil
}

// GetByReviewTaskID looks up a Diff by its natural key ahead of the
// backend reporter's own upsert, so callers (the pipeline CLI) can resolve
// a stable diff id for platform-publish idempotency before a diff's first
// persistence.
func (r *DiffRepository) GetByReviewTaskID(ctx context.Context, reviewTaskID string) (*domain.Diff, error) {
	const op = "internal.repository.postgres.GetByReviewTaskID"

	query, args, err := r.sq.Select("id", "revision_id", "provider_diff_id", "commit_hash", "review_task_id", "repository_id", "created_at").
		From("diffs").
		Where(sq.Eq{"review_task_id": reviewTaskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var diff domain.Diff
	if err := r.db.GetContext(ctx, &diff, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: review task %q", op, apperrors.ErrNotFound, reviewTaskID)
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return &diff, nil
}

func (r *DiffRepository) GetByID(ctx context.Context, id int) (*domain.Diff, error) {
	const op = "internal.repository.postgres.GetByID"

	query, args, err := r.sq.Select("id", "revision_id", "provider_diff_id", "commit_hash", "review_task_id", "repository_id", "created_at").
		From("diffs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var diff domain.Diff
	if err := r.db.GetContext(ctx, &diff, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: diff %d", op, apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return &diff, nil
}

func (r *DiffRepository) List(ctx context.Context, f repository.ListFilter) ([]domain.Diff, error) {
	const op = "internal.repository.postgres.List"

	qb := r.sq.Select("d.id", "d.revision_id", "d.provider_diff_id", "d.commit_hash", "d.review_task_id", "d.repository_id", "d.created_at").
		From("diffs d").
		Join("repositories repo ON repo.id = d.repository_id")

	if f.Repository != "" {
		qb = qb.Where(sq.Eq{"repo.slug": f.Repository})
	}
	if f.Search != "" {
		qb = qb.Where(sq.ILike{"d.commit_hash": "%" + f.Search + "%"})
	}
	switch f.Issues {
	case "no":
		qb = qb.Where(`NOT EXISTS (SELECT 1 FROM issue_links il WHERE il.diff_id = d.id)`)
	case "any":
		qb = qb.Where(`EXISTS (SELECT 1 FROM issue_links il WHERE il.diff_id = d.id)`)
	case "publishable":
		qb = qb.Where(`EXISTS (SELECT 1 FROM issue_links il WHERE il.diff_id = d.id AND il.publishable)`)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query, args, err := qb.OrderBy("d.created_at DESC").Limit(uint64(limit)).Offset(uint64(f.Offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var diffs []domain.Diff
	if err := r.db.SelectContext(ctx, &diffs, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Diff{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return diffs, nil
}

func (r *DiffRepository) ListByRevision(ctx context.Context, revisionID, limit, offset int) ([]domain.Diff, error) {
	const op = "internal.repository.postgres.ListByRevision"

	query, args, err := r.sq.Select("id", "revision_id", "provider_diff_id", "commit_hash", "review_task_id", "repository_id", "created_at").
		From("diffs").
		Where(sq.Eq{"revision_id": revisionID}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var diffs []domain.Diff
	if err := r.db.SelectContext(ctx, &diffs, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Diff{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return diffs, nil
}
