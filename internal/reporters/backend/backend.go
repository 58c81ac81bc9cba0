// Package backend is the mandatory reporter of spec.md §4.4: it writes the
// classified issue set into the system of record with idempotent
// natural-key semantics so retried runs converge to the same state (P3).
package backend

import (
	"context"
	"fmt"

	"github.com/mozilla/code-review/internal/classify"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/reporters"
)

// Writer is the natural-key idempotent persistence contract this reporter
// drives. The implementation is internal/backend.Writer, which writes
// in-process through the postgres repositories, transactional per diff.
type Writer interface {
	// WriteDiff persists repository/revision/diff by natural key (create if
	// absent, identity otherwise), inserts each issue by hash (conflict =
	// keep), and replaces this diff's issue links; everything after the
	// repository row is written in one transaction.
	WriteDiff(ctx context.Context, repo domain.Repository, rev domain.Revision, diff domain.Diff, issues []classify.ClassifiedIssue) error

	// PriorHashes returns the set of issue hashes already linked to any
	// other diff of the given revision, used by classify.NewForRevision.
	PriorHashes(ctx context.Context, revisionProviderID string) (map[string]struct{}, error)
}

type Reporter struct {
	writer Writer
}

func New(writer Writer) *Reporter {
	return &Reporter{writer: writer}
}

func (r *Reporter) Name() string { return "backend" }

func (r *Reporter) Report(ctx context.Context, rep reporters.Report) error {
	if err := r.writer.WriteDiff(ctx, rep.Repository, rep.Revision, rep.Diff, rep.Issues); err != nil {
		return fmt.Errorf("write diff: %w", err)
	}
	return nil
}
