package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
)

// CheckService serves GET /v1/check/{repository}/{analyzer}/{check}/,
// /v1/check/stats/ and /v1/check/history/ (spec.md §9's supplemented
// aggregate shapes).
type CheckService interface {
	List(ctx context.Context, repository, analyzer, check string, publishableOnly bool, limit, offset int) ([]api.Issue, error)
	Stats(ctx context.Context, since sql.NullTime) ([]api.CheckStat, error)
	History(ctx context.Context, repository, analyzer, check string, since sql.NullTime) ([]api.CheckHistoryPoint, error)
}

type CheckServiceImpl struct {
	BaseService
	issues repository.IssueRepository
}

func NewCheckService(log *slog.Logger, issues repository.IssueRepository) *CheckServiceImpl {
	return &CheckServiceImpl{
		BaseService: NewBaseService(log),
		issues:      issues,
	}
}

func (s *CheckServiceImpl) List(ctx context.Context, repositorySlug, analyzer, check string, publishableOnly bool, limit, offset int) ([]api.Issue, error) {
	const op = "internal.service.check.List"

	issues, err := s.issues.ListByCheck(ctx, repositorySlug, analyzer, check, publishableOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.Issue, len(issues))
	for i, iss := range issues {
		out[i] = toAPIIssue(iss)
	}
	return out, nil
}

func (s *CheckServiceImpl) Stats(ctx context.Context, since sql.NullTime) ([]api.CheckStat, error) {
	const op = "internal.service.check.Stats"

	stats, err := s.issues.Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.CheckStat, len(stats))
	for i, st := range stats {
		out[i] = toAPICheckStat(st)
	}
	return out, nil
}

func (s *CheckServiceImpl) History(ctx context.Context, repositorySlug, analyzer, check string, since sql.NullTime) ([]api.CheckHistoryPoint, error) {
	const op = "internal.service.check.History"

	points, err := s.issues.History(ctx, repositorySlug, analyzer, check, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.CheckHistoryPoint, len(points))
	for i, p := range points {
		out[i] = api.CheckHistoryPoint{Date: p.Date, Total: p.Total}
	}
	return out, nil
}

func toAPICheckStat(c domain.CheckStat) api.CheckStat {
	return api.CheckStat{
		Repository:  c.Repository,
		Analyzer:    c.Analyzer,
		Check:       c.Check,
		Total:       c.Total,
		Publishable: c.Publishable,
	}
}
