// Package backend adapts the normalized relational repositories to the
// backend.Writer contract, so the mandatory reporter persists a diff's
// classified issue set inside one transaction (spec.md §4.4, I3, I5).
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/classify"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/internal/repository/postgres"
)

// Writer implements the reporters/backend.Writer contract against the
// postgres repositories, matching the teacher's BaseService.transaction
// pattern of wrapping a multi-table write in one *sqlx.Tx.
type Writer struct {
	db         *sqlx.DB
	log        *slog.Logger
	repos      repository.RepositoryRepository
	revisions  *postgres.RevisionRepository
	diffs      repository.DiffRepository
	issues     repository.IssueRepository
	issueLinks repository.IssueLinkRepository
}

func NewWriter(
	db *sqlx.DB,
	log *slog.Logger,
	repos repository.RepositoryRepository,
	revisions *postgres.RevisionRepository,
	diffs repository.DiffRepository,
	issues repository.IssueRepository,
	issueLinks repository.IssueLinkRepository,
) *Writer {
	return &Writer{
		db:         db,
		log:        log,
		repos:      repos,
		revisions:  revisions,
		diffs:      diffs,
		issues:     issues,
		issueLinks: issueLinks,
	}
}

// WriteDiff persists repository/revision/diff by natural key, inserts each
// issue by hash, and replaces this diff's links. The repository row is
// ensured first, outside the transaction; revision, diff, issues and links
// are then written in one transaction so a retried run converges rather
// than partially applying a diff's issue set (P3).
func (w *Writer) WriteDiff(ctx context.Context, repo domain.Repository, rev domain.Revision, diff domain.Diff, classified []classify.ClassifiedIssue) error {
	const op = "internal.backend.WriteDiff"

	persistedRepo, err := w.repos.EnsureBySlug(ctx, repo)
	if err != nil {
		return fmt.Errorf("%s: ensure repository: %w", op, err)
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rev.BaseRepositoryID = persistedRepo.ID
	persistedRev, err := w.revisions.EnsureByProviderID(ctx, tx, rev)
	if err != nil {
		return fmt.Errorf("%s: ensure revision: %w", op, err)
	}

	diff.RevisionID = persistedRev.ID
	diff.RepositoryID = persistedRepo.ID
	persistedDiff, err := w.diffs.EnsureByReviewTaskID(ctx, tx, diff)
	if err != nil {
		return fmt.Errorf("%s: ensure diff: %w", op, err)
	}

	issues := make([]domain.Issue, 0, len(classified))
	for _, c := range classified {
		issues = append(issues, domain.Issue{
			Hash:     c.Hash,
			Path:     c.Path,
			Line:     c.Line,
			NbLines:  c.NbLines,
			Check:    c.Check,
			Analyzer: c.Analyzer,
			Level:    c.Level,
			Message:  c.Message,
			Body:     c.Body,
		})
	}
	persisted, err := w.issues.EnsureByHash(ctx, tx, issues)
	if err != nil {
		return fmt.Errorf("%s: ensure issues: %w", op, err)
	}

	links := make([]domain.IssueLink, 0, len(classified))
	for _, c := range classified {
		row, ok := persisted[c.Hash]
		if !ok {
			return fmt.Errorf("%s: issue hash %q not returned by EnsureByHash", op, c.Hash)
		}
		links = append(links, domain.IssueLink{
			IssueID:        row.ID,
			DiffID:         persistedDiff.ID,
			RevisionID:     persistedRev.ID,
			InPatch:        c.InPatch,
			NewForRevision: c.NewForRevision,
			Publishable:    c.Publishable,
		})
	}
	if err := w.issueLinks.ReplaceForDiff(ctx, tx, persistedDiff.ID, links); err != nil {
		return fmt.Errorf("%s: replace issue links: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// PriorHashes resolves the revision by its provider id and returns the
// hashes already linked to any of its prior diffs. A revision not seen
// before (first diff of a new pull request or review) has no prior hashes.
func (w *Writer) PriorHashes(ctx context.Context, revisionProviderID string) (map[string]struct{}, error) {
	const op = "internal.backend.PriorHashes"

	rev, err := w.revisions.GetByProviderID(ctx, revisionProviderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("%s: resolve revision: %w", op, err)
	}

	hashes, err := w.issues.PriorHashes(ctx, rev.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: load prior hashes: %w", op, err)
	}
	return hashes, nil
}
