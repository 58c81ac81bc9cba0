//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/code-review/internal/domain"
)

func TestIssueLinkRepository_ReplaceForDiff_ReplacesFlags(t *testing.T) {
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
		{Hash: "hash-1", Path: "a.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelWarning, Message: "m", Body: ""},
	})
	require.NoError(t, err)
	issueID := persisted["hash-1"].ID

	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: issueID, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: false, NewForRevision: true, Publishable: false},
	}))
	require.NoError(t, tx.Commit())

	notPublishable, err := issues.ListByCheck(ctx, fx.repo.Slug, "a", "c", true, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, notPublishable)

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: issueID, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: true, NewForRevision: true, Publishable: true},
	}))
	require.NoError(t, tx.Commit())

	publishable, err := issues.ListByCheck(ctx, fx.repo.Slug, "a", "c", true, 50, 0)
	require.NoError(t, err)
	require.Len(t, publishable, 1)
	assert.Equal(t, "hash-1", publishable[0].Hash)
}

func TestIssueLinkRepository_ReplaceForDiff_PrunesDroppedLinks(t *testing.T) {
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
		{Hash: "hash-1", Path: "a.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelWarning, Message: "m", Body: ""},
		{Hash: "hash-2", Path: "b.cpp", NbLines: 1, Check: "c", Analyzer: "a", Level: domain.LevelWarning, Message: "m", Body: ""},
	})
	require.NoError(t, err)
	id1, id2 := persisted["hash-1"].ID, persisted["hash-2"].ID

	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: id1, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: true, NewForRevision: true, Publishable: true},
		{IssueID: id2, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: true, NewForRevision: true, Publishable: true},
	}))
	require.NoError(t, tx.Commit())

	byDiff, err := issues.ListByDiff(ctx, fx.diff.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, byDiff, 2)

	// A shrinking re-run drops hash-2 from the diff's output entirely.
	tx, err = testDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, []domain.IssueLink{
		{IssueID: id1, DiffID: fx.diff.ID, RevisionID: fx.rev.ID, InPatch: true, NewForRevision: true, Publishable: true},
	}))
	require.NoError(t, tx.Commit())

	byDiff, err = issues.ListByDiff(ctx, fx.diff.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, byDiff, 1)
	assert.Equal(t, "hash-1", byDiff[0].Hash)

	// An empty result set prunes every remaining link for the diff.
	tx, err = testDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, links.ReplaceForDiff(ctx, tx, fx.diff.ID, nil))
	require.NoError(t, tx.Commit())

	byDiff, err = issues.ListByDiff(ctx, fx.diff.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, byDiff)
}
