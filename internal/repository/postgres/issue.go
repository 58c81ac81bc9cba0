package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/domain"
)

// IssueRepository persists domain.Issue rows. Issues are created once on
// first observation by hash and shared across Diffs thereafter (I4).
type IssueRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewIssueRepository(db *sqlx.DB, log *slog.Logger) *IssueRepository {
	return &IssueRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureByHash bulk-inserts issues by natural key (hash); a conflict keeps
// the already-stored row, per the backend reporter's idempotent semantics.
// Returns the persisted rows (including ids) keyed by hash.
func (r *IssueRepository) EnsureByHash(ctx context.Context, tx *sqlx.Tx, issues []domain.Issue) (map[string]domain.Issue, error) {
	const op = "internal.repository.postgres.EnsureByHash"
	if len(issues) == 0 {
		return map[string]domain.Issue{}, nil
	}

	insertBuilder := r.sq.Insert("issues").
		Columns("hash", "path", "line", "nb_lines", "check_name", "analyzer", "level", "message", "body")
	for _, i := range issues {
		insertBuilder = insertBuilder.Values(i.Hash, i.Path, i.Line, i.NbLines, i.Check, i.Analyzer, i.Level, i.Message, i.Body)
	}

	query, args, err := insertBuilder.
		Suffix(`ON CONFLICT (hash) DO UPDATE SET hash = EXCLUDED.hash RETURNING id, hash, path, line, nb_lines, check_name, analyzer, level, message, body, created_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build bulk upsert query: %w", op, err)
	}

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute bulk upsert: %w", op, err)
	}
	defer rows.Close()

	out := make(map[string]domain.Issue, len(issues))
	for rows.Next() {
		var issue domain.Issue
		if err := rows.StructScan(&issue); err != nil {
			return nil, fmt.Errorf("%s: failed to scan issue: %w", op, err)
		}
		out[issue.Hash] = issue
	}
	return out, rows.Err()
}

func (r *IssueRepository) ListByDiff(ctx context.Context, diffID, limit, offset int) ([]domain.Issue, error) {
	const op = "internal.repository.postgres.ListByDiff"

	query, args, err := r.sq.Select("i.id", "i.hash", "i.path", "i.line", "i.nb_lines", "i.check_name", "i.analyzer", "i.level", "i.message", "i.body", "i.created_at").
		From("issues i").
		Join("issue_links il ON il.issue_id = i.id").
		Where(sq.Eq{"il.diff_id": diffID}).
		OrderBy("i.path", "i.line", "i.analyzer", "i.check_name", "i.hash").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var issues []domain.Issue
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Issue{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return issues, nil
}

// ListByCheck filters issues by the (repository, analyzer, check) triple
// of GET /v1/check/{repository}/{analyzer}/{check}/.
func (r *IssueRepository) ListByCheck(ctx context.Context, repositorySlug, analyzerName, check string, publishableOnly bool, limit, offset int) ([]domain.Issue, error) {
	const op = "internal.repository.postgres.ListByCheck"

	qb := r.sq.Select("i.id", "i.hash", "i.path", "i.line", "i.nb_lines", "i.check_name", "i.analyzer", "i.level", "i.message", "i.body", "i.created_at").
		From("issues i").
		Join("issue_links il ON il.issue_id = i.id").
		Join("diffs d ON d.id = il.diff_id").
		Join("repositories repo ON repo.id = d.repository_id").
		Where(sq.Eq{"repo.slug": repositorySlug, "i.analyzer": analyzerName, "i.check_name": check})

	if publishableOnly {
		qb = qb.Where(sq.Eq{"il.publishable": true})
	}

	query, args, err := qb.OrderBy("i.created_at DESC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var issues []domain.Issue
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Issue{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return issues, nil
}

// PriorHashes returns the hashes already linked to any diff of revisionID,
// consumed by classify.NewForRevision on subsequent diffs.
func (r *IssueRepository) PriorHashes(ctx context.Context, revisionID int) (map[string]struct{}, error) {
	const op = "internal.repository.postgres.PriorHashes"

	query, args, err := r.sq.Select("DISTINCT i.hash").
		From("issues i").
		Join("issue_links il ON il.issue_id = i.id").
		Where(sq.Eq{"il.revision_id": revisionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var hashes []string
	if err := r.db.SelectContext(ctx, &hashes, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[h] = struct{}{}
	}
	return out, nil
}

func (r *IssueRepository) Stats(ctx context.Context, since sql.NullTime) ([]domain.CheckStat, error) {
	const op = "internal.repository.postgres.Stats"

	qb := r.sq.Select(
		"repo.slug as repository",
		"i.analyzer",
		"i.check_name",
		"COUNT(*) as total",
		"COUNT(CASE WHEN il.publishable THEN 1 END) as publishable",
	).
		From("issues i").
		Join("issue_links il ON il.issue_id = i.id").
		Join("diffs d ON d.id = il.diff_id").
		Join("repositories repo ON repo.id = d.repository_id").
		GroupBy("repo.slug", "i.analyzer", "i.check_name")

	if since.Valid {
		qb = qb.Where(sq.GtOrEq{"i.created_at": since.Time})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var stats []domain.CheckStat
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.CheckStat{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return stats, nil
}

func (r *IssueRepository) History(ctx context.Context, repositorySlug, analyzerName, check string, since sql.NullTime) ([]domain.CheckHistoryPoint, error) {
	const op = "internal.repository.postgres.History"

	qb := r.sq.Select(
		"date_trunc('day', i.created_at) as date",
		"COUNT(*) as total",
	).
		From("issues i").
		Join("issue_links il ON il.issue_id = i.id").
		Join("diffs d ON d.id = il.diff_id").
		Join("repositories repo ON repo.id = d.repository_id").
		Where(sq.Eq{"repo.slug": repositorySlug, "i.analyzer": analyzerName, "i.check_name": check}).
		GroupBy("date_trunc('day', i.created_at)").
		OrderBy("date_trunc('day', i.created_at)")

	if since.Valid {
		qb = qb.Where(sq.GtOrEq{"i.created_at": since.Time})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var points []domain.CheckHistoryPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.CheckHistoryPoint{}, nil
		}
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	return points, nil
}

// DeleteOlderThanWithNoPublishableLinks implements the cleanup job's
// retention rule (spec.md §9 supplemented feature).
func (r *IssueRepository) DeleteOlderThanWithNoPublishableLinks(ctx context.Context, tx *sqlx.Tx, cutoff sql.NullTime) (int64, error) {
	const op = "internal.repository.postgres.DeleteOlderThanWithNoPublishableLinks"

	query, args, err := r.sq.Delete("issues").
		Where(`created_at < ? AND NOT EXISTS (SELECT 1 FROM issue_links il WHERE il.issue_id = issues.id AND il.publishable)`, cutoff.Time).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
