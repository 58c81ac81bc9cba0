package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
)

func TestDiffServiceImpl_List(t *testing.T) {
	testCases := []struct {
		name        string
		filter      repository.ListFilter
		setupMock   func(diffMock *DiffRepositoryMock)
		expectedLen int
		expectedErr error
	}{
		{
			name:   "forwards the filter and converts results",
			filter: repository.ListFilter{Repository: "mozilla-central", Issues: "publishable", Limit: 20},
			setupMock: func(diffMock *DiffRepositoryMock) {
				diffMock.On("List", mock.Anything, repository.ListFilter{Repository: "mozilla-central", Issues: "publishable", Limit: 20}).
					Return([]domain.Diff{{ID: 1, ReviewTaskID: "task-1"}}, nil)
			},
			expectedLen: 1,
		},
		{
			name:   "propagates repository error",
			filter: repository.ListFilter{},
			setupMock: func(diffMock *DiffRepositoryMock) {
				diffMock.On("List", mock.Anything, repository.ListFilter{}).Return(nil, errors.New("query failed"))
			},
			expectedErr: errors.New("query failed"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diffMock := new(DiffRepositoryMock)
			issueMock := new(IssueRepositoryMock)
			tc.setupMock(diffMock)

			svc := NewDiffService(discardLogger(), diffMock, issueMock)
			got, err := svc.List(context.Background(), tc.filter)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
				assert.Len(t, got, tc.expectedLen)
			}
			diffMock.AssertExpectations(t)
		})
	}
}

func TestDiffServiceImpl_Get_SetsIssuesURL(t *testing.T) {
	diffMock := new(DiffRepositoryMock)
	issueMock := new(IssueRepositoryMock)
	diffMock.On("GetByID", mock.Anything, 42).Return(&domain.Diff{ID: 42, ReviewTaskID: "task-1"}, nil)

	svc := NewDiffService(discardLogger(), diffMock, issueMock)
	got, err := svc.Get(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/v1/diff/%d/issues/", 42), got.IssuesUrl)
	diffMock.AssertExpectations(t)
}

func TestDiffServiceImpl_ListIssues(t *testing.T) {
	testCases := []struct {
		name        string
		setupMock   func(issueMock *IssueRepositoryMock)
		expectedLen int
		expectedErr error
	}{
		{
			name: "returns issues for a diff",
			setupMock: func(issueMock *IssueRepositoryMock) {
				line := 12
				issueMock.On("ListByDiff", mock.Anything, 42, 50, 0).Return([]domain.Issue{
					{ID: 1, Hash: "h1", Path: "a.cpp", Line: &line, Check: "c", Analyzer: "a", Level: domain.LevelWarning},
				}, nil)
			},
			expectedLen: 1,
		},
		{
			name: "propagates repository error",
			setupMock: func(issueMock *IssueRepositoryMock) {
				issueMock.On("ListByDiff", mock.Anything, 42, 50, 0).Return(nil, errors.New("boom"))
			},
			expectedErr: errors.New("boom"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diffMock := new(DiffRepositoryMock)
			issueMock := new(IssueRepositoryMock)
			tc.setupMock(issueMock)

			svc := NewDiffService(discardLogger(), diffMock, issueMock)
			got, err := svc.ListIssues(context.Background(), 42, 50, 0)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
				require.Len(t, got, tc.expectedLen)
				assert.Equal(t, 12, got[0].Line)
			}
			issueMock.AssertExpectations(t)
		})
	}
}
