package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepositoryServiceImpl_List(t *testing.T) {
	testCases := []struct {
		name        string
		setupMock   func(repoMock *RepositoryRepositoryMock)
		limit       int
		offset      int
		expected    []domain.Repository
		expectedErr error
	}{
		{
			name: "returns repositories converted to API shape",
			setupMock: func(repoMock *RepositoryRepositoryMock) {
				repoMock.On("List", mock.Anything, 50, 0).Return([]domain.Repository{
					{ID: 1, Slug: "mozilla-central", URL: "https://hg.mozilla.org/mozilla-central", Kind: domain.RepositoryKindSource},
				}, nil)
			},
			limit:  50,
			offset: 0,
			expected: []domain.Repository{
				{ID: 1, Slug: "mozilla-central", URL: "https://hg.mozilla.org/mozilla-central", Kind: domain.RepositoryKindSource},
			},
		},
		{
			name: "propagates repository error",
			setupMock: func(repoMock *RepositoryRepositoryMock) {
				repoMock.On("List", mock.Anything, 50, 0).Return(nil, errors.New("db down"))
			},
			limit:       50,
			offset:      0,
			expectedErr: errors.New("db down"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repoMock := new(RepositoryRepositoryMock)
			tc.setupMock(repoMock)

			svc := NewRepositoryService(discardLogger(), repoMock)
			got, err := svc.List(context.Background(), tc.limit, tc.offset)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
			} else {
				require.NoError(t, err)
				require.Len(t, got, len(tc.expected))
				for i, want := range tc.expected {
					assert.Equal(t, want.Slug, got[i].Slug)
					assert.Equal(t, want.URL, got[i].Url)
				}
			}
			repoMock.AssertExpectations(t)
		})
	}
}
