package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
)

// DiffService serves GET /v1/diff/, /v1/diff/{id}/ and /v1/diff/{id}/issues/.
type DiffService interface {
	List(ctx context.Context, f repository.ListFilter) ([]api.Diff, error)
	Get(ctx context.Context, id int) (*api.Diff, error)
	ListIssues(ctx context.Context, id int, limit, offset int) ([]api.Issue, error)
}

type DiffServiceImpl struct {
	BaseService
	diffs  repository.DiffRepository
	issues repository.IssueRepository
}

func NewDiffService(log *slog.Logger, diffs repository.DiffRepository, issues repository.IssueRepository) *DiffServiceImpl {
	return &DiffServiceImpl{
		BaseService: NewBaseService(log),
		diffs:       diffs,
		issues:      issues,
	}
}

func (s *DiffServiceImpl) List(ctx context.Context, f repository.ListFilter) ([]api.Diff, error) {
	const op = "internal.service.diff.List"

	diffs, err := s.diffs.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.Diff, len(diffs))
	for i, d := range diffs {
		out[i] = toAPIDiff(d)
	}
	return out, nil
}

// Get returns the single-diff view, including the issues_url spec.md §6
// requires in place of embedding the issue list inline.
func (s *DiffServiceImpl) Get(ctx context.Context, id int) (*api.Diff, error) {
	const op = "internal.service.diff.Get"

	d, err := s.diffs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := toAPIDiff(*d)
	out.IssuesUrl = fmt.Sprintf("/v1/diff/%d/issues/", d.ID)
	return &out, nil
}

func (s *DiffServiceImpl) ListIssues(ctx context.Context, id int, limit, offset int) ([]api.Issue, error) {
	const op = "internal.service.diff.ListIssues"

	issues, err := s.issues.ListByDiff(ctx, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.Issue, len(issues))
	for i, iss := range issues {
		out[i] = toAPIIssue(iss)
	}
	return out, nil
}

func toAPIDiff(d domain.Diff) api.Diff {
	return api.Diff{
		Id:             d.ID,
		RevisionId:     d.RevisionID,
		ProviderDiffId: d.ProviderDiffID,
		CommitHash:     d.CommitHash,
		ReviewTaskId:   d.ReviewTaskID,
		RepositoryId:   d.RepositoryID,
		CreatedAt:      d.CreatedAt,
	}
}

func toAPIIssue(i domain.Issue) api.Issue {
	out := api.Issue{
		Id:        i.ID,
		Hash:      i.Hash,
		Path:      i.Path,
		NbLines:   i.NbLines,
		Check:     i.Check,
		Analyzer:  i.Analyzer,
		Level:     string(i.Level),
		Message:   i.Message,
		CreatedAt: i.CreatedAt,
	}
	if i.Line != nil {
		out.Line = *i.Line
	}
	if i.Body != "" {
		body := i.Body
		out.Body = &body
	}
	return out
}
