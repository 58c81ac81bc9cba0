package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/domain"
)

// RevisionRepository persists domain.Revision rows, created on first
// observation and otherwise updated only on title/bug id (spec.md §3).
type RevisionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRevisionRepository(db *sqlx.DB, log *slog.Logger) *RevisionRepository {
	return &RevisionRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureByProviderID creates the Revision if absent, or updates title/bug
// id on the existing row by natural key (provider, provider_id).
func (r *RevisionRepository) EnsureByProviderID(ctx context.Context, tx *sqlx.Tx, rev domain.Revision) (*domain.Revision, error) {
	const op = "internal.repository.postgres.EnsureByProviderID"

	query, args, err := r.sq.Insert("revisions").
		Columns("provider_id", "provider", "title", "bug_id", "base_repository_id").
		Values(rev.ProviderID, rev.Provider, rev.Title, rev.BugID, rev.BaseRepositoryID).
		Suffix(`ON CONFLICT (provider, provider_id) DO UPDATE SET
			title = EXCLUDED.title, bug_id = EXCLUDED.bug_id
			RETURNING id, provider_id, provider, title, bug_id, base_repository_id, created_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	var created domain.Revision
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&created); err != nil {
		return nil, fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}
	return &created, nil
}

// GetByProviderID looks up a Revision by its natural key ahead of the
// upsert in EnsureByProviderID, used by the backend reporter to resolve a
// prior-hash set before a revision's first diff is known to exist.
func (r *RevisionRepository) GetByProviderID(ctx context.Context, providerID string) (*domain.Revision, error) {
	const op = "internal.repository.postgres.GetByProviderID"

	query, args, err := r.sq.Select("id", "provider_id", "provider", "title", "bug_id", "base_repository_id", "created_at").
		From("revisions").
		Where(sq.Eq{"provider_id": providerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rev domain.Revision
	if err := r.db.GetContext(ctx, &rev, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: revision %q", op, apperrors.ErrNotFound, providerID)
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return &rev, nil
}

func (r *RevisionRepository) GetByID(ctx context.Context, id int) (*domain.Revision, error) {
	const op = "internal.repository.postgres.GetByID"

	query, args, err := r.sq.Select("id", "provider_id", "provider", "title", "bug_id", "base_repository_id", "created_at").
		From("revisions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rev domain.Revision
	if err := r.db.GetContext(ctx, &rev, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: revision %d", op, apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return &rev, nil
}
