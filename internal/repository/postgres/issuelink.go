package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/domain"
)

// IssueLinkRepository persists the per-(issue, diff, revision) flag rows
// glueing Issues to Diffs (spec.md §3).
type IssueLinkRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewIssueLinkRepository(db *sqlx.DB, log *slog.Logger) *IssueLinkRepository {
	return &IssueLinkRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ReplaceForDiff bulk-inserts diffID's issue links, replacing flags on
// conflict — the reporter's "insert IssueLinks for this diff (conflict =
// replace flags)" semantics of spec.md §4.4 — and deletes any link for
// diffID not present in links. This enforces I5 as stated: the set of
// links for a diff always equals exactly the pipeline's current output for
// that diff, never a superset left over from a prior, larger run.
func (r *IssueLinkRepository) ReplaceForDiff(ctx context.Context, tx *sqlx.Tx, diffID int, links []domain.IssueLink) error {
	const op = "internal.repository.postgres.ReplaceForDiff"

	if len(links) == 0 {
		query, args, err := r.sq.Delete("issue_links").Where(sq.Eq{"diff_id": diffID}).ToSql()
		if err != nil {
			return fmt.Errorf("%s: failed to build delete-all query: %w", op, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: failed to execute delete-all: %w", op, err)
		}
		return nil
	}

	issueIDs := make([]int, 0, len(links))
	insertBuilder := r.sq.Insert("issue_links").
		Columns("issue_id", "diff_id", "revision_id", "in_patch", "new_for_revision", "publishable")
	for _, l := range links {
		insertBuilder = insertBuilder.Values(l.IssueID, l.DiffID, l.RevisionID, l.InPatch, l.NewForRevision, l.Publishable)
		issueIDs = append(issueIDs, l.IssueID)
	}

	query, args, err := insertBuilder.
		Suffix(`ON CONFLICT (issue_id, diff_id) DO UPDATE SET
			in_patch = EXCLUDED.in_patch,
			new_for_revision = EXCLUDED.new_for_revision,
			publishable = EXCLUDED.publishable`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build bulk insert query: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute bulk insert: %w", op, err)
	}

	deleteQuery, deleteArgs, err := r.sq.Delete("issue_links").
		Where(sq.Eq{"diff_id": diffID}).
		Where(sq.NotEq{"issue_id": issueIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build prune query: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("%s: failed to execute prune: %w", op, err)
	}
	return nil
}
