package resume

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextuptv/internal/catalog"
	"nextuptv/pkg/database"
	"nextuptv/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(db, catalog.NewRepo(db)), db
}

func seedTitle(t *testing.T, cat *catalog.Repo, monID, name string) int64 {
	t.Helper()
	id, _, err := cat.UpsertTitle(context.Background(), cat.DB, models.Title{
		MonID: monID, Kind: models.KindSeries, Name: name, LocalUpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func TestUpsertAllDedupsByHash(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	entry := models.ResumeEntry{
		Service: models.Netflix, ServiceItemID: "80057281",
		TitleText: "The Wire", SeasonNumber: 1, EpisodeNumber: 3, ResumeIndex: 0,
	}
	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{entry}))

	// same scrape again, only the position moved
	entry.ResumeIndex = 5
	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{entry}))

	var count, index int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(resume_index) FROM resume_entries`).Scan(&count, &index))
	assert.Equal(t, 1, count)
	assert.Equal(t, 5, index)
}

func TestHashKeyDistinguishesEpisodes(t *testing.T) {
	base := models.ResumeEntry{Service: models.Netflix, TitleText: "The Wire", SeasonNumber: 1, EpisodeNumber: 1}
	other := base
	other.EpisodeNumber = 2
	assert.NotEqual(t, HashKey(base), HashKey(other))

	// title casing and padding do not change identity
	padded := base
	padded.TitleText = "  the wire "
	assert.Equal(t, HashKey(base), HashKey(padded))
}

func TestResolveByProviderID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	titleID := seedTitle(t, repo.Catalog, "tt1", "The Wire")
	_, err := repo.Catalog.UpsertExternalIDs(ctx, repo.Catalog.DB, []models.ExternalID{
		{EntityID: titleID, Provider: models.Netflix, ProviderID: "80057281", Available: true},
	})
	require.NoError(t, err)
	_, err = repo.Catalog.UpsertEpisodes(ctx, repo.Catalog.DB, []models.Episode{
		{TitleID: titleID, MonID: "e3", SeasonNumber: 1, EpisodeNumber: 3, LocalUpdatedAt: time.Now().UTC()},
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{{
		Service: models.Netflix, ServiceItemID: "80057281",
		TitleText: "some scraped label", SeasonNumber: 1, EpisodeNumber: 3,
	}}))

	resolved, err := repo.ResolveUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	feed, err := repo.Feed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].Entry.ResolvedTitleID)
	assert.Equal(t, titleID, *feed[0].Entry.ResolvedTitleID)
	require.NotNil(t, feed[0].Entry.ResolvedEpisodeID)
	assert.Equal(t, "The Wire", feed[0].ResolvedTitleName)
}

func TestResolveFallsBackToTitleText(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	titleID := seedTitle(t, repo.Catalog, "tt2", "Heat")

	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{{
		Service: models.Netflix, TitleText: "  heat ",
	}}))

	resolved, err := repo.ResolveUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	feed, err := repo.Feed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].Entry.ResolvedTitleID)
	assert.Equal(t, titleID, *feed[0].Entry.ResolvedTitleID)
	assert.Nil(t, feed[0].Entry.ResolvedEpisodeID)
}

func TestResolveLeavesUnknownUnresolved(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{{
		Service: models.Netflix, TitleText: "Never Synced Show",
	}}))

	resolved, err := repo.ResolveUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	feed, err := repo.Feed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Nil(t, feed[0].Entry.ResolvedTitleID)
	assert.Empty(t, feed[0].ResolvedTitleName)
}

func TestFeedOrdersByResumeIndex(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertAll(ctx, []models.ResumeEntry{
		{Service: models.Netflix, TitleText: "Second", ResumeIndex: 2},
		{Service: models.Netflix, TitleText: "First", ResumeIndex: 1},
		{Service: models.Hulu, TitleText: "Third", ResumeIndex: 3},
	}))

	feed, err := repo.Feed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "First", feed[0].Entry.TitleText)
	assert.Equal(t, "Second", feed[1].Entry.TitleText)
}
