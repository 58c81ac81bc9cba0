// Package reporters defines the pluggable sink interface the pipeline
// dispatches the classified, aggregated issue set to, plus the dispatch
// order contract of spec.md §4.4: backend first and fatal, the rest
// best-effort and logged.
package reporters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/classify"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/pkg/logger/sl"
)

// Report bundles everything a reporter needs to publish one diff's
// classified issue set.
type Report struct {
	Repository domain.Repository
	Revision   domain.Revision
	Diff       domain.Diff
	Issues     []classify.ClassifiedIssue
}

// Reporter is implemented by backend, platform, email and build_error.
type Reporter interface {
	Name() string
	Report(ctx context.Context, r Report) error
}

// Dispatch runs backend first (its failure aborts the run per spec.md
// §4.4/§7) then the rest in configuration order (failures logged, never
// fatal).
func Dispatch(ctx context.Context, log *slog.Logger, backend Reporter, rest []Reporter, r Report) error {
	if backend != nil {
		if err := backend.Report(ctx, r); err != nil {
			return fmt.Errorf("backend reporter: %w", err)
		}
	}

	for _, rep := range rest {
		if err := rep.Report(ctx, r); err != nil {
			if err == apperrors.ErrAlreadyPublished {
				log.Info("reporter already published", "reporter", rep.Name())
				continue
			}
			log.Warn("reporter failed, continuing", "reporter", rep.Name(), sl.Err(err))
		}
	}

	return nil
}
