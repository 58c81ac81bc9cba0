package http

import (
	"context"
	"database/sql"

	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
	"github.com/stretchr/testify/mock"
)

type RepositoryServiceMock struct {
	mock.Mock
}

func (m *RepositoryServiceMock) List(ctx context.Context, limit, offset int) ([]api.Repository, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Repository), args.Error(1)
}

type RevisionServiceMock struct {
	mock.Mock
}

func (m *RevisionServiceMock) Get(ctx context.Context, id int) (*api.Revision, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Revision), args.Error(1)
}

func (m *RevisionServiceMock) ListDiffs(ctx context.Context, id int, limit, offset int) ([]api.Diff, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Diff), args.Error(1)
}

type DiffServiceMock struct {
	mock.Mock
}

func (m *DiffServiceMock) List(ctx context.Context, f repository.ListFilter) ([]api.Diff, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Diff), args.Error(1)
}

func (m *DiffServiceMock) Get(ctx context.Context, id int) (*api.Diff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Diff), args.Error(1)
}

func (m *DiffServiceMock) ListIssues(ctx context.Context, id int, limit, offset int) ([]api.Issue, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Issue), args.Error(1)
}

type CheckServiceMock struct {
	mock.Mock
}

func (m *CheckServiceMock) List(ctx context.Context, repositorySlug, analyzer, check string, publishableOnly bool, limit, offset int) ([]api.Issue, error) {
	args := m.Called(ctx, repositorySlug, analyzer, check, publishableOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Issue), args.Error(1)
}

func (m *CheckServiceMock) Stats(ctx context.Context, since sql.NullTime) ([]api.CheckStat, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.CheckStat), args.Error(1)
}

func (m *CheckServiceMock) History(ctx context.Context, repositorySlug, analyzer, check string, since sql.NullTime) ([]api.CheckHistoryPoint, error) {
	args := m.Called(ctx, repositorySlug, analyzer, check, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.CheckHistoryPoint), args.Error(1)
}
