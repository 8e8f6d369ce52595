package catalog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextuptv/pkg/database"
	"nextuptv/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(db), db
}

func insertTitle(t *testing.T, repo *Repo, monID, name string) int64 {
	t.Helper()
	id, _, err := repo.UpsertTitle(context.Background(), repo.DB, models.Title{
		MonID: monID, Kind: models.KindMovie, Name: name, LocalUpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func TestUpsertTitleIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first := models.Title{
		MonID: "tt1", Kind: models.KindMovie, Name: "Heat",
		Synopsis: "crime drama", Year: 1995, LocalUpdatedAt: time.Now().UTC(),
	}
	id1, created, err := repo.UpsertTitle(ctx, repo.DB, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Positive(t, id1)

	// same mon_id with different metadata resolves the same row untouched
	second := first
	second.Name = "Heat (Remastered)"
	second.Year = 2017
	id2, created, err := repo.UpsertTitle(ctx, repo.DB, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	got, err := repo.GetTitle(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Heat", got.Name)
	assert.Equal(t, 1995, got.Year)
}

func TestUpsertGenresCaseInsensitive(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	ids, created, err := repo.UpsertGenresByName(ctx, repo.DB, []string{"Drama", "Thriller"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 2, created)

	// different casing maps onto the existing rows
	again, created, err := repo.UpsertGenresByName(ctx, repo.DB, []string{"drama", "THRILLER", "Comedy"})
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, 1, created)
	assert.Equal(t, ids[0], again[0])
	assert.Equal(t, ids[1], again[1])
}

func TestUpsertPeopleExactName(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	ids, created, err := repo.UpsertPeople(ctx, repo.DB, []string{"Al Pacino", "Robert De Niro"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	again, created, err := repo.UpsertPeople(ctx, repo.DB, []string{"Al Pacino"})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, ids[0], again[0])
}

func TestUpsertExternalIDsRefreshesMutableFields(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	titleID := insertTitle(t, repo, "tt1", "Heat")

	n, err := repo.UpsertExternalIDs(ctx, repo.DB, []models.ExternalID{
		{EntityID: titleID, Provider: models.Netflix, ProviderID: "111", Available: true, Price: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// same (entity, provider) key with new values refreshes in place
	_, err = repo.UpsertExternalIDs(ctx, repo.DB, []models.ExternalID{
		{EntityID: titleID, Provider: models.Netflix, ProviderID: "222", Available: false, Price: 399},
	})
	require.NoError(t, err)

	exts, err := repo.TitleExternalIDs(ctx, titleID)
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, "222", exts[0].ProviderID)
	assert.False(t, exts[0].Available)
	assert.Equal(t, 399, exts[0].Price)
}

func TestUpsertEpisodesNaturalKey(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	titleID := insertTitle(t, repo, "tt-series", "The Wire")

	eps := []models.Episode{
		{TitleID: titleID, MonID: "ep1", SeasonNumber: 1, EpisodeNumber: 1, Name: "Pilot", LocalUpdatedAt: time.Now().UTC()},
		{TitleID: titleID, MonID: "ep2", SeasonNumber: 1, EpisodeNumber: 2, Name: "The Detail", LocalUpdatedAt: time.Now().UTC()},
	}
	n, err := repo.UpsertEpisodes(ctx, repo.DB, eps)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// re-sync with renamed episode refreshes the existing row
	eps[0].Name = "The Target"
	_, err = repo.UpsertEpisodes(ctx, repo.DB, eps)
	require.NoError(t, err)

	var count int
	require.NoError(t, repo.DB.QueryRow(`SELECT COUNT(*) FROM episodes`).Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	require.NoError(t, repo.DB.QueryRow(`
		SELECT name FROM episodes WHERE title_id = ? AND season_number = 1 AND episode_number = 1
	`, titleID).Scan(&name))
	assert.Equal(t, "The Target", name)

	epID, err := repo.FindEpisodeID(ctx, titleID, 1, 2)
	require.NoError(t, err)
	assert.Positive(t, epID)
}

func topShowIDs(t *testing.T, db *sql.DB, service models.StreamingService) []int64 {
	t.Helper()
	rows, err := db.Query(`
		SELECT title_id FROM title_popularities
		WHERE service = ? AND popularity_type = ?
		ORDER BY rank
	`, service, models.TopShows)
	require.NoError(t, err)
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		out = append(out, id)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestUpdateTopShowsReconciles(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	a := insertTitle(t, repo, "tt-a", "A")
	b := insertTitle(t, repo, "tt-b", "B")
	c := insertTitle(t, repo, "tt-c", "C")
	d := insertTitle(t, repo, "tt-d", "D")

	require.NoError(t, repo.UpdateTopShows(ctx, models.Netflix, models.TopShows, []int64{a, b, c}))
	assert.Equal(t, []int64{a, b, c}, topShowIDs(t, db, models.Netflix))

	// next sync: A dropped out, D entered, B and C shifted up
	require.NoError(t, repo.UpdateTopShows(ctx, models.Netflix, models.TopShows, []int64{b, c, d}))
	assert.Equal(t, []int64{b, c, d}, topShowIDs(t, db, models.Netflix))

	var rank int
	require.NoError(t, db.QueryRow(`
		SELECT rank FROM title_popularities WHERE service = ? AND title_id = ?
	`, models.Netflix, b).Scan(&rank))
	assert.Equal(t, 1, rank)

	// other services are untouched
	require.NoError(t, repo.UpdateTopShows(ctx, models.Hulu, models.TopShows, []int64{a}))
	assert.Equal(t, []int64{b, c, d}, topShowIDs(t, db, models.Netflix))
}

func TestUpdateTopShowsEmptyListClears(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	a := insertTitle(t, repo, "tt-a", "A")
	require.NoError(t, repo.UpdateTopShows(ctx, models.Netflix, models.TopShows, []int64{a}))
	require.NoError(t, repo.UpdateTopShows(ctx, models.Netflix, models.TopShows, nil))
	assert.Empty(t, topShowIDs(t, db, models.Netflix))
}

func TestUpsertRefsIgnoreDuplicates(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	titleID := insertTitle(t, repo, "tt1", "Heat")

	genreIDs, _, err := repo.UpsertGenresByName(ctx, repo.DB, []string{"Drama"})
	require.NoError(t, err)
	personIDs, _, err := repo.UpsertPeople(ctx, repo.DB, []string{"Al Pacino"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = repo.UpsertTitleGenres(ctx, repo.DB, titleID, genreIDs)
		require.NoError(t, err)
		_, err = repo.UpsertCredits(ctx, repo.DB, titleID, personIDs, models.RoleCast)
		require.NoError(t, err)
	}

	var refs, credits int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM title_genres`).Scan(&refs))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM credits`).Scan(&credits))
	assert.Equal(t, 1, refs)
	assert.Equal(t, 1, credits)

	// same person in a different role is a distinct credit
	_, err = repo.UpsertCredits(ctx, repo.DB, titleID, personIDs, models.RoleDirector)
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM credits`).Scan(&credits))
	assert.Equal(t, 2, credits)
}

func TestFindTitleByExternalAndName(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	titleID := insertTitle(t, repo, "tt1", "Heat")

	_, err := repo.UpsertExternalIDs(ctx, repo.DB, []models.ExternalID{
		{EntityID: titleID, Provider: models.Netflix, ProviderID: "80057281", Available: true},
	})
	require.NoError(t, err)

	byExt, err := repo.FindTitleByExternal(ctx, models.Netflix, "80057281")
	require.NoError(t, err)
	require.NotNil(t, byExt)
	assert.Equal(t, titleID, byExt.ID)

	missing, err := repo.FindTitleByExternal(ctx, models.Netflix, "0")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byName, err := repo.FindTitleByName(ctx, "  heat ")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, titleID, byName.ID)
}
