//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/domain"
)

func TestRepositoryRepository_EnsureBySlug_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	truncateTables(t, testDB)

	repo := NewRepositoryRepository(testDB, logger)
	ctx := context.Background()

	first, err := repo.EnsureBySlug(ctx, domain.Repository{
		Slug: "mozilla-central",
		URL:  "https://hg.mozilla.org/mozilla-central",
		Kind: domain.RepositoryKindSource,
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := repo.EnsureBySlug(ctx, domain.Repository{
		Slug: "mozilla-central",
		URL:  "https://hg.mozilla.org/mozilla-central",
		Kind: domain.RepositoryKindSource,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestRepositoryRepository_GetBySlug_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	truncateTables(t, testDB)

	repo := NewRepositoryRepository(testDB, logger)
	_, err := repo.GetBySlug(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRepositoryRepository_List_Paginates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	truncateTables(t, testDB)

	repo := NewRepositoryRepository(testDB, logger)
	ctx := context.Background()
	for _, slug := range []string{"repo-a", "repo-b", "repo-c"} {
		_, err := repo.EnsureBySlug(ctx, domain.Repository{Slug: slug, URL: "https://example.test/" + slug, Kind: domain.RepositoryKindSource})
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
