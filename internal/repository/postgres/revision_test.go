//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
)

func setupRevisionTest(t *testing.T) *domain.Repository {
	t.Helper()
	truncateTables(t, testDB)
	repo, err := NewRepositoryRepository(testDB, logger).EnsureBySlug(context.Background(), domain.Repository{
		Slug: "mozilla-central",
		URL:  "https://hg.mozilla.org/mozilla-central",
		Kind: domain.RepositoryKindSource,
	})
	require.NoError(t, err)
	return repo
}

func TestRevisionRepository_EnsureByProviderID_UpdatesTitleNotIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo := setupRevisionTest(t)
	revisions := NewRevisionRepository(testDB, logger)
	ctx := context.Background()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	bugID := 1234567
	created, err := revisions.EnsureByProviderID(ctx, tx, domain.Revision{
		ProviderID:       "D1",
		Provider:         domain.ProviderCodeReview,
		Title:            "Initial title",
		BugID:            &bugID,
		BaseRepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NotZero(t, created.ID)

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	updated, err := revisions.EnsureByProviderID(ctx, tx, domain.Revision{
		ProviderID:       "D1",
		Provider:         domain.ProviderCodeReview,
		Title:            "Updated title",
		BugID:            &bugID,
		BaseRepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Updated title", updated.Title)

	fetched, err := revisions.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated title", fetched.Title)

	byProvider, err := revisions.GetByProviderID(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byProvider.ID)
}
