//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
)

type issueFixture struct {
	repo domain.Repository
	rev  domain.Revision
	diff domain.Diff
}

func setupIssueTest(t *testing.T) issueFixture {
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
	diff, err := NewDiffRepository(testDB, logger).EnsureByReviewTaskID(ctx, tx, domain.Diff{
		RevisionID: rev.ID, ProviderDiffID: 1, CommitHash: "abc123", ReviewTaskID: "task-1", RepositoryID: repo.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return issueFixture{repo: *repo, rev: *rev, diff: *diff}
}

func TestIssueRepository_EnsureByHash_And_Aggregates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	fx := setupIssueTest(t)
	issues := NewIssueRepository(testDB, logger)
	links := NewIssueLinkRepository(testDB, logger)
	ctx := context.Background()

	line := 10
	tx, err := testDB.Beginx()
	require.NoError(t, err)
	persisted, err := issues.EnsureByHash(ctx, tx, []domain.Issue{
		{Hash: "hash-1", Path: "a.cpp", Line: &line, NbLines: 1, Check: "clang-tidy-check", Analyzer: "clang-tidy", Level: domain.LevelWarning, Message: "msg", Body: "body"},
	})
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	row := persisted["hash-1"]
	require.NotZero(t, row.ID)

	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: row.ID, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: true, NewForRevision: true, Publishable: true},
	}))
	require.NoError(t, tx.Commit())

	byDiff, err := issues.ListByDiff(ctx, fx.diff.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, byDiff, 1)
	assert.Equal(t, "hash-1", byDiff[0].Hash)

	byCheck, err := issues.ListByCheck(ctx, fx.repo.Slug, "clang-tidy", "clang-tidy-check", true, 50, 0)
	require.NoError(t, err)
	require.Len(t, byCheck, 1)

	prior, err := issues.PriorHashes(ctx, fx.rev.ID)
	require.NoError(t, err)
	assert.Contains(t, prior, "hash-1")

	stats, err := issues.Stats(ctx, sql.NullTime{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Total)
	assert.Equal(t, 1, stats[0].Publishable)

	history, err := issues.History(ctx, fx.repo.Slug, "clang-tidy", "clang-tidy-check", sql.NullTime{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Total)
}

func TestIssueRepository_EnsureByHash_ConflictKeepsOriginal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	setupIssueTest(t)
	issues := NewIssueRepository(testDB, logger)
	ctx := context.Background()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	first, err := issues.EnsureByHash(ctx, tx, []domain.Issue{
		{Hash: "hash-1", Path: "a.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelError, Message: "first", Body: ""},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	second, err := issues.EnsureByHash(ctx, tx, []domain.Issue{
		{Hash: "hash-1", Path: "a.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelError, Message: "second", Body: ""},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, first["hash-1"].ID, second["hash-1"].ID)
	assert.Equal(t, "first", second["hash-1"].Message)
}

func TestIssueRepository_DeleteOlderThanWithNoPublishableLinks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	fx := setupIssueTest(t)
	issues := NewIssueRepository(testDB, logger)
	links := NewIssueLinkRepository(testDB, logger)
	ctx := context.Background()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	persisted, err := issues.EnsureByHash(ctx, tx, []domain.Issue{
		{Hash: "stale-hash", Path: "a.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelWarning, Message: "m", Body: ""},
	})
	require.NoError(t, err)
	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: persisted["stale-hash"].ID, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, Publishable: false},
	}))
	require.NoError(t, tx.Commit())

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	// A future cutoff makes every row "older than cutoff".
	n, err := issues.DeleteOlderThanWithNoPublishableLinks(ctx, tx, sql.NullTime{Valid: true, Time: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(1), n)
}
