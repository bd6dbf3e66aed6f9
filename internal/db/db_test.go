package db

import (
	"testing"
	"time"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsvik/berth/internal/release"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testRelease(id string, status release.Status) release.Release {
	return release.Release{
		ID:         id,
		AppName:    "myapp",
		SourceRef:  "abc1234",
		TargetName: "production",
		Status:     status,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndGetRelease(t *testing.T) {
	database := openTestDB(t)

	rel := testRelease(release.NewID(), release.StatusPending)
	require.NoError(t, database.SaveRelease(rel))

	got, err := database.GetRelease(rel.ID)
	require.NoError(t, err)
	assert.Equal(t, rel.ID, got.ID)
	assert.Equal(t, "myapp", got.AppName)
	assert.Equal(t, release.StatusPending, got.Status)
	assert.Empty(t, got.RolledBackTo)
	assert.True(t, got.FinishedAt.IsZero())

	_, err = database.GetRelease("missing")
	assert.ErrorIs(t, err, ErrReleaseNotFound)
}

func TestUpdateRelease(t *testing.T) {
	database := openTestDB(t)

	rel := testRelease(release.NewID(), release.StatusPending)
	require.NoError(t, database.SaveRelease(rel))

	rel.Status = release.StatusSucceeded
	rel.ArtifactHash = "deadbeef"
	rel.Reason = "healthy"
	rel.FinishedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, database.UpdateRelease(rel))

	got, err := database.GetRelease(rel.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusSucceeded, got.Status)
	assert.Equal(t, "deadbeef", got.ArtifactHash)
	assert.Equal(t, "healthy", got.Reason)
	assert.False(t, got.FinishedAt.IsZero())

	missing := testRelease("01AAAAAAAAAAAAAAAAAAAAAAAA", release.StatusFailed)
	assert.ErrorIs(t, database.UpdateRelease(missing), ErrReleaseNotFound)
}

func TestReleaseHistoryAndPrune(t *testing.T) {
	database := openTestDB(t)

	var ids []string
	for i := 0; i < 5; i++ {
		rel := testRelease(release.NewID(), release.StatusSucceeded)
		rel.FinishedAt = time.Now()
		require.NoError(t, database.SaveRelease(rel))
		ids = append(ids, rel.ID)
		time.Sleep(2 * time.Millisecond)
	}

	history, err := database.GetReleaseHistory("myapp", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[4], history[0].ID, "history should be newest first")

	pruned, err := database.PruneOldReleases("myapp", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pruned)

	history, err = database.GetReleaseHistory("myapp", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPruneKeepsInFlightReleases(t *testing.T) {
	database := openTestDB(t)

	inflight := testRelease(release.NewID(), release.StatusDeploying)
	require.NoError(t, database.SaveRelease(inflight))
	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, database.SaveRelease(testRelease(release.NewID(), release.StatusSucceeded)))
	}

	_, err := database.PruneOldReleases("myapp", 1)
	require.NoError(t, err)

	got, err := database.GetRelease(inflight.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusDeploying, got.Status)
}

func TestFailInterruptedReleases(t *testing.T) {
	database := openTestDB(t)

	stuck := testRelease(release.NewID(), release.StatusHealthChecking)
	require.NoError(t, database.SaveRelease(stuck))
	done := testRelease(release.NewID(), release.StatusSucceeded)
	done.FinishedAt = time.Now()
	require.NoError(t, database.SaveRelease(done))

	count, err := database.FailInterruptedReleases()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := database.GetRelease(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusFailed, got.Status)
	assert.Equal(t, "interrupted", got.Reason)
	assert.False(t, got.FinishedAt.IsZero())

	got, err = database.GetRelease(done.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusSucceeded, got.Status)
	assert.Empty(t, got.Reason)
}

func TestPruneKeepsLastKnownGood(t *testing.T) {
	database := openTestDB(t)

	good := testRelease(release.NewID(), release.StatusSucceeded)
	good.FinishedAt = time.Now()
	require.NoError(t, database.SaveRelease(good))
	require.NoError(t, database.UpsertHost("myapp", "production", "prod.example.com"))
	require.NoError(t, database.SetLastKnownGood("myapp", "production", good.ID))

	for i := 0; i < 5; i++ {
		time.Sleep(2 * time.Millisecond)
		rel := testRelease(release.NewID(), release.StatusFailed)
		rel.FinishedAt = time.Now()
		require.NoError(t, database.SaveRelease(rel))
	}

	pruned, err := database.PruneOldReleases("myapp", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pruned)

	got, err := database.GetRelease(good.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusSucceeded, got.Status)
}

func TestPruneKeepsRollbackTargets(t *testing.T) {
	database := openTestDB(t)

	target := testRelease(release.NewID(), release.StatusSucceeded)
	target.FinishedAt = time.Now()
	require.NoError(t, database.SaveRelease(target))

	for i := 0; i < 4; i++ {
		time.Sleep(2 * time.Millisecond)
		rel := testRelease(release.NewID(), release.StatusFailed)
		rel.FinishedAt = time.Now()
		require.NoError(t, database.SaveRelease(rel))
	}
	time.Sleep(2 * time.Millisecond)
	rolledBack := testRelease(release.NewID(), release.StatusRolledBack)
	rolledBack.RolledBackTo = target.ID
	rolledBack.FinishedAt = time.Now()
	require.NoError(t, database.SaveRelease(rolledBack))

	_, err := database.PruneOldReleases("myapp", 2)
	require.NoError(t, err)

	got, err := database.GetRelease(target.ID)
	require.NoError(t, err)
	assert.Equal(t, release.StatusSucceeded, got.Status)
}

func TestSucceededReleases(t *testing.T) {
	database := openTestDB(t)

	ok := testRelease(release.NewID(), release.StatusSucceeded)
	require.NoError(t, database.SaveRelease(ok))
	time.Sleep(2 * time.Millisecond)
	failed := testRelease(release.NewID(), release.StatusFailed)
	require.NoError(t, database.SaveRelease(failed))

	candidates, err := database.SucceededReleases("myapp", "production", 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, ok.ID, candidates[0].ID)
}

func TestHostLastKnownGood(t *testing.T) {
	database := openTestDB(t)

	_, err := database.GetHost("myapp", "production")
	assert.ErrorIs(t, err, ErrHostNotFound)

	require.NoError(t, database.UpsertHost("myapp", "production", "prod.example.com"))

	host, err := database.GetHost("myapp", "production")
	require.NoError(t, err)
	assert.Equal(t, "prod.example.com", host.Address)
	assert.Empty(t, host.LastKnownGood)

	rel := testRelease(release.NewID(), release.StatusSucceeded)
	require.NoError(t, database.SaveRelease(rel))
	require.NoError(t, database.SetLastKnownGood("myapp", "production", rel.ID))

	host, err = database.GetHost("myapp", "production")
	require.NoError(t, err)
	assert.Equal(t, rel.ID, host.LastKnownGood)

	assert.ErrorIs(t, database.SetLastKnownGood("other", "production", rel.ID), ErrHostNotFound)
}

func TestSecrets(t *testing.T) {
	database := openTestDB(t)

	// No identity configured
	t.Setenv("BERTH_ENCRYPTION_KEY", "")
	assert.Error(t, database.SetSecret("deploy-key", "value"))

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv("BERTH_ENCRYPTION_KEY", identity.String())

	require.NoError(t, database.SetSecret("deploy-key", "ssh private key"))

	value, err := database.GetSecretDecryptedValue("deploy-key")
	require.NoError(t, err)
	assert.Equal(t, "ssh private key", value)

	list, err := database.GetSecretsList()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, "ssh private key", list[0].EncryptedValue, "value should be encrypted at rest")

	require.NoError(t, database.DeleteSecret("deploy-key"))
	assert.Error(t, database.DeleteSecret("deploy-key"))
}
