package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stravadash/internal/config"
)

func testTarget(t *testing.T) string {
	t.Helper()
	barePath := filepath.Join(t.TempDir(), "target.git")
	_, err := git.PlainInit(barePath, true)
	require.NoError(t, err)
	return barePath
}

func testPublisher(url string) *Publisher {
	cfg := config.PublishConfig{
		URL:    url,
		Branch: "main",
		Author: "stravadash",
		Email:  "stravadash@localhost",
	}
	return NewPublisher(cfg).WithClock(func() time.Time {
		return time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC)
	})
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strava_dashboard.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPublish_FirstPublishIntoEmptyRepoCommits(t *testing.T) {
	barePath := testTarget(t)
	artifact := writeArtifact(t, "<html>v1</html>")

	result, err := testPublisher(barePath).Publish(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)
	require.NotEmpty(t, result.CommitHash)

	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	require.Equal(t, result.CommitHash, ref.Hash().String())
}

func TestPublish_UnchangedArtifactMakesNoCommit(t *testing.T) {
	barePath := testTarget(t)
	artifact := writeArtifact(t, "<html>v1</html>")
	publisher := testPublisher(barePath)

	first, err := publisher.Publish(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, first.Outcome)

	second, err := publisher.Publish(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, second.Outcome)
	require.Empty(t, second.CommitHash)

	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	require.Equal(t, first.CommitHash, ref.Hash().String(), "branch head must not move")
}

func TestPublish_ChangedArtifactCreatesExactlyOneCommit(t *testing.T) {
	barePath := testTarget(t)
	publisher := testPublisher(barePath)

	_, err := publisher.Publish(context.Background(), writeArtifact(t, "<html>v1</html>"))
	require.NoError(t, err)

	result, err := publisher.Publish(context.Background(), writeArtifact(t, "<html>v2</html>"))
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)

	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	require.Equal(t, result.CommitHash, ref.Hash().String())

	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	require.Contains(t, commit.Message, "2026-08-15T06:00:00Z")
	require.Len(t, commit.ParentHashes, 1)
}

func TestPublish_CommitMessageCarriesTimestamp(t *testing.T) {
	barePath := testTarget(t)
	result, err := testPublisher(barePath).Publish(context.Background(), writeArtifact(t, "<html>v1</html>"))
	require.NoError(t, err)

	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	commit, err := repo.CommitObject(plumbing.NewHash(result.CommitHash))
	require.NoError(t, err)
	require.Equal(t, "Update dashboard 2026-08-15T06:00:00Z", commit.Message)
}

func TestPublish_CloneFailureIsFatal(t *testing.T) {
	publisher := testPublisher(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := publisher.Publish(context.Background(), writeArtifact(t, "<html>v1</html>"))
	require.Error(t, err)
}

func TestFileSHA256_DiffersOnContent(t *testing.T) {
	a := writeArtifact(t, "one")
	b := writeArtifact(t, "two")

	hashA, err := FileSHA256(a)
	require.NoError(t, err)
	hashB, err := FileSHA256(b)
	require.NoError(t, err)
	require.NotEqual(t, hashA, hashB)
	require.Len(t, hashA, 64)
}
