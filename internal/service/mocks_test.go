package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
)

type RepositoryRepositoryMock struct{ mock.Mock }

var _ repository.RepositoryRepository = (*RepositoryRepositoryMock)(nil)

func (m *RepositoryRepositoryMock) EnsureBySlug(ctx context.Context, repo domain.Repository) (*domain.Repository, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repository), args.Error(1)
}

func (m *RepositoryRepositoryMock) GetBySlug(ctx context.Context, slug string) (*domain.Repository, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repository), args.Error(1)
}

func (m *RepositoryRepositoryMock) List(ctx context.Context, limit, offset int) ([]domain.Repository, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

type RevisionRepositoryMock struct{ mock.Mock }

var _ repository.RevisionRepository = (*RevisionRepositoryMock)(nil)

func (m *RevisionRepositoryMock) EnsureByProviderID(ctx context.Context, tx *sqlx.Tx, rev domain.Revision) (*domain.Revision, error) {
	args := m.Called(ctx, tx, rev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Revision), args.Error(1)
}

func (m *RevisionRepositoryMock) GetByID(ctx context.Context, id int) (*domain.Revision, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Revision), args.Error(1)
}

type DiffRepositoryMock struct{ mock.Mock }

var _ repository.DiffRepository = (*DiffRepositoryMock)(nil)

func (m *DiffRepositoryMock) EnsureByReviewTaskID(ctx context.Context, tx *sqlx.Tx, diff domain.Diff) (*domain.Diff, error) {
	args := m.Called(ctx, tx, diff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Diff), args.Error(1)
}

func (m *DiffRepositoryMock) GetByID(ctx context.Context, id int) (*domain.Diff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Diff), args.Error(1)
}

func (m *DiffRepositoryMock) List(ctx context.Context, f repository.ListFilter) ([]domain.Diff, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Diff), args.Error(1)
}

func (m *DiffRepositoryMock) ListByRevision(ctx context.Context, revisionID, limit, offset int) ([]domain.Diff, error) {
	args := m.Called(ctx, revisionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Diff), args.Error(1)
}

type IssueRepositoryMock struct{ mock.Mock }

var _ repository.IssueRepository = (*IssueRepositoryMock)(nil)

func (m *IssueRepositoryMock) EnsureByHash(ctx context.Context, tx *sqlx.Tx, issues []domain.Issue) (map[string]domain.Issue, error) {
	args := m.Called(ctx, tx, issues)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Issue), args.Error(1)
}

func (m *IssueRepositoryMock) ListByDiff(ctx context.Context, diffID, limit, offset int) ([]domain.Issue, error) {
	args := m.Called(ctx, diffID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *IssueRepositoryMock) ListByCheck(ctx context.Context, repositorySlug, analyzer, check string, publishableOnly bool, limit, offset int) ([]domain.Issue, error) {
	args := m.Called(ctx, repositorySlug, analyzer, check, publishableOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *IssueRepositoryMock) PriorHashes(ctx context.Context, revisionID int) (map[string]struct{}, error) {
	args := m.Called(ctx, revisionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *IssueRepositoryMock) Stats(ctx context.Context, since sql.NullTime) ([]domain.CheckStat, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CheckStat), args.Error(1)
}

func (m *IssueRepositoryMock) History(ctx context.Context, repositorySlug, analyzer, check string, since sql.NullTime) ([]domain.CheckHistoryPoint, error) {
	args := m.Called(ctx, repositorySlug, analyzer, check, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CheckHistoryPoint), args.Error(1)
}

func (m *IssueRepositoryMock) DeleteOlderThanWithNoPublishableLinks(ctx context.Context, tx *sqlx.Tx, cutoff sql.NullTime) (int64, error) {
	args := m.Called(ctx, tx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
