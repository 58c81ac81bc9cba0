//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
)

func setupDiffTest(t *testing.T) (*domain.Repository, *domain.Revision) {
	t.Helper()
	truncateTables(t, testDB)
	ctx := context.Background()

	repo, err := NewRepositoryRepository(testDB, logger).EnsureBySlug(ctx, domain.Repository{
		Slug: "mozilla-central", URL: "https://hg.mozilla.org/mozilla-central", Kind: domain.RepositoryKindSource,
	})
	require.NoError(t, err)

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	rev, err := NewRevisionRepository(testDB, logger).EnsureByProviderID(ctx, tx, domain.Revision{
		ProviderID: "D1", Provider: domain.ProviderCodeReview, Title: "rev", BaseRepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return repo, rev
}

func TestDiffRepository_EnsureByReviewTaskID_IsIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo, rev := setupDiffTest(t)
	diffs := NewDiffRepository(testDB, logger)
	ctx := context.Background()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	first, err := diffs.EnsureByReviewTaskID(ctx, tx, domain.Diff{
		RevisionID: rev.ID, ProviderDiffID: 1, CommitHash: "abc123", ReviewTaskID: "task-1", RepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	second, err := diffs.EnsureByReviewTaskID(ctx, tx, domain.Diff{
		RevisionID: rev.ID, ProviderDiffID: 1, CommitHash: "abc123", ReviewTaskID: "task-1", RepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, first.ID, second.ID)

	byTask, err := diffs.GetByReviewTaskID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byTask.ID)
}

func TestDiffRepository_List_FiltersByRepositoryAndIssues(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo, rev := setupDiffTest(t)
	diffs := NewDiffRepository(testDB, logger)
	ctx := context.Background()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	_, err = diffs.EnsureByReviewTaskID(ctx, tx, domain.Diff{
		RevisionID: rev.ID, ProviderDiffID: 1, CommitHash: "abc123", ReviewTaskID: "task-1", RepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	results, err := diffs.List(ctx, repository.ListFilter{Repository: "mozilla-central", Issues: "no", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	none, err := diffs.List(ctx, repository.ListFilter{Repository: "mozilla-central", Issues: "publishable", Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, none)

	byRevision, err := diffs.ListByRevision(ctx, rev.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, byRevision, 1)
}
