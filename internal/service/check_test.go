package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
)

func TestCheckServiceImpl_List(t *testing.T) {
	testCases := []struct {
		name        string
		setupMock   func(issueMock *IssueRepositoryMock)
		expectedLen int
		expectedErr error
	}{
		{
			name: "returns publishable-only issues for a check",
			setupMock: func(issueMock *IssueRepositoryMock) {
				issueMock.On("ListByCheck", mock.Anything, "mozilla-central", "clang-tidy", "bugprone-use-after-move", true, 50, 0).
					Return([]domain.Issue{{ID: 1, Hash: "h1", Check: "bugprone-use-after-move", Analyzer: "clang-tidy"}}, nil)
			},
			expectedLen: 1,
		},
		{
			name: "propagates repository error",
			setupMock: func(issueMock *IssueRepositoryMock) {
				issueMock.On("ListByCheck", mock.Anything, "mozilla-central", "clang-tidy", "bugprone-use-after-move", true, 50, 0).
					Return(nil, errors.New("db error"))
			},
			expectedErr: errors.New("db error"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			issueMock := new(IssueRepositoryMock)
			tc.setupMock(issueMock)

			svc := NewCheckService(discardLogger(), issueMock)
			got, err := svc.List(context.Background(), "mozilla-central", "clang-tidy", "bugprone-use-after-move", true, 50, 0)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
				assert.Len(t, got, tc.expectedLen)
			}
			issueMock.AssertExpectations(t)
		})
	}
}

func TestCheckServiceImpl_Stats(t *testing.T) {
	issueMock := new(IssueRepositoryMock)
	issueMock.On("Stats", mock.Anything, sql.NullTime{}).Return([]domain.CheckStat{
		{Repository: "mozilla-central", Analyzer: "clang-tidy", Check: "bugprone-use-after-move", Total: 5, Publishable: 3},
	}, nil)

	svc := NewCheckService(discardLogger(), issueMock)
	got, err := svc.Stats(context.Background(), sql.NullTime{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Total)
	assert.Equal(t, 3, got[0].Publishable)
	issueMock.AssertExpectations(t)
}

func TestCheckServiceImpl_History(t *testing.T) {
	since := sql.NullTime{Valid: true, Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	issueMock := new(IssueRepositoryMock)
	issueMock.On("History", mock.Anything, "mozilla-central", "clang-tidy", "bugprone-use-after-move", since).
		Return([]domain.CheckHistoryPoint{
			{Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Total: 2},
		}, nil)

	svc := NewCheckService(discardLogger(), issueMock)
	got, err := svc.History(context.Background(), "mozilla-central", "clang-tidy", "bugprone-use-after-move", since)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Total)
	issueMock.AssertExpectations(t)
}
