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
)

// RepositoryRepository persists domain.Repository rows. Repositories are
// seeded from configuration and immutable thereafter (spec.md §3).
type RepositoryRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRepositoryRepository(db *sqlx.DB, log *slog.Logger) *RepositoryRepository {
	return &RepositoryRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureBySlug creates a Repository if absent, or returns the existing row
// by its natural key (slug). This is the idempotent "create or identity"
// semantics the backend reporter relies on.
func (r *RepositoryRepository) EnsureBySlug(ctx context.Context, repo domain.Repository) (*domain.Repository, error) {
	const op = "internal.repository.postgres.EnsureBySlug"
	log := r.log.With(slog.String("op", op), slog.String("slug", repo.Slug))

	query, args, err := r.sq.Insert("repositories").
		Columns("slug", "url", "kind").
		Values(repo.Slug, repo.URL, repo.Kind).
		Suffix("ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug RETURNING id, slug, url, kind, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var created domain.Repository
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&created); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, &apperrors.RepositoryAlreadyExistsError{Slug: repo.Slug}
		}
		return nil, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	log.Info("repository ensured")
	return &created, nil
}

func (r *RepositoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Repository, error) {
	const op = "internal.repository.postgres.GetBySlug"

	query, args, err := r.sq.Select("id", "slug", "url", "kind", "created_at").
		From("repositories").
		Where(sq.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var repo domain.Repository
	if err := r.db.GetContext(ctx, &repo, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: repository '%s'", op, apperrors.ErrNotFound, slug)
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return &repo, nil
}

func (r *RepositoryRepository) List(ctx context.Context, limit, offset int) ([]domain.Repository, error) {
	const op = "internal.repository.postgres.List"

	query, args, err := r.sq.Select("id", "slug", "url", "kind", "created_at").
		From("repositories").
		OrderBy("slug").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var repos []domain.Repository
	if err := r.db.SelectContext(ctx, &repos, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Repository{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return repos, nil
}
