package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextuptv/internal/catalog"
	"nextuptv/internal/movienight"
	"nextuptv/pkg/database"
	"nextuptv/pkg/models"
)

// fakeCatalogAPI serves a canned paginated catalog plus per-title detail
// and episode endpoints, the way the upstream search API shapes them.
type fakeCatalogAPI struct {
	pages        []movienight.SearchPage
	shows        map[string]movienight.TitleDTO
	episodes     map[string][]movienight.EpisodeDTO
	top          []movienight.TitleDTO
	searchCalls  int32
	episodeCalls int32
}

func (f *fakeCatalogAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/shows/search/filters", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.searchCalls, 1)
		cursor := r.URL.Query().Get("cursor")
		idx := 0
		if cursor != "" {
			fmt.Sscanf(cursor, "page-%d", &idx)
		}
		if idx >= len(f.pages) {
			http.Error(w, "bad cursor", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(f.pages[idx])
	})
	mux.HandleFunc("/shows/top", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.top)
	})
	mux.HandleFunc("/shows/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/shows/")
		if monID, ok := strings.CutSuffix(rest, "/episodes"); ok {
			atomic.AddInt32(&f.episodeCalls, 1)
			json.NewEncoder(w).Encode(f.episodes[monID])
			return
		}
		dto, ok := f.shows[rest]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(dto)
	})
	return mux
}

func newSyncRepo(t *testing.T, fake *fakeCatalogAPI) (*Repo, *sql.DB) {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	api := movienight.NewClient(srv.URL, "test-key")
	api.Retry = movienight.RetryPolicy{Attempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return NewRepo(api, db, catalog.NewRepo(db)), db
}

func movieDTO(id, name string) movienight.TitleDTO {
	return movienight.TitleDTO{
		ID:       id,
		ShowType: "movie",
		Title:    name,
		Genres:   []movienight.GenreDTO{{Name: "Drama"}},
		Cast:     []string{"Some Actor"},
		StreamingOpts: map[string][]movienight.StreamingOptionDTO{
			"us": {{
				Service: movienight.StreamingServiceDTO{ID: "netflix"},
				Link:    "https://www.netflix.com/title/1" + id,
			}},
		},
	}
}

func TestSyncAllPaginatesToEnd(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			{Shows: []movienight.TitleDTO{movieDTO("1", "One"), movieDTO("2", "Two")}, HasMore: true, NextCursor: "page-1"},
			{Shows: []movienight.TitleDTO{movieDTO("3", "Three")}, HasMore: true, NextCursor: "page-2"},
			{Shows: []movienight.TitleDTO{movieDTO("4", "Four")}, HasMore: false},
		},
	}
	repo, db := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 4, report.TitlesUpserted)
	assert.Equal(t, 0, report.TitlesFailed)
	assert.Equal(t, 4, report.ExternalIDsUpserted)
	assert.Equal(t, 1, report.GenresUpserted, "Drama created once, reused after")
	assert.Equal(t, 4, report.TitleGenreRefs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.searchCalls))
	assert.False(t, report.FinishedAt.IsZero())

	var titles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM titles`).Scan(&titles))
	assert.Equal(t, 4, titles)

	// run state persisted
	var pages int
	var finished sql.NullTime
	require.NoError(t, db.QueryRow(`
		SELECT pages, finished_at FROM sync_runs WHERE id = ?
	`, report.RunID).Scan(&pages, &finished))
	assert.Equal(t, 3, pages)
	assert.True(t, finished.Valid)
}

func TestSyncAllHonorsPageCap(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			{Shows: []movienight.TitleDTO{movieDTO("1", "One")}, HasMore: true, NextCursor: "page-1"},
			{Shows: []movienight.TitleDTO{movieDTO("2", "Two")}, HasMore: true, NextCursor: "page-2"},
			{Shows: []movienight.TitleDTO{movieDTO("3", "Three")}, HasMore: false},
		},
	}
	repo, _ := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.searchCalls), "cap of 2 means exactly 2 fetches")
	assert.Equal(t, "page-2", report.LastCursor, "cursor kept for resuming")
}

func TestSyncAllResumesFromCursor(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			{Shows: []movienight.TitleDTO{movieDTO("1", "One")}, HasMore: true, NextCursor: "page-1"},
			{Shows: []movienight.TitleDTO{movieDTO("2", "Two")}, HasMore: false},
		},
	}
	repo, db := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "page-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, report.TitlesUpserted)

	var titles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM titles`).Scan(&titles))
	assert.Equal(t, 1, titles, "only the resumed page's title lands")
}

func TestSyncAllTitleFailureDoesNotAbortRun(t *testing.T) {
	broken := movieDTO("", "No ID")
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			{Shows: []movienight.TitleDTO{movieDTO("1", "One"), broken, movieDTO("2", "Two")}, HasMore: false},
		},
	}
	repo, db := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.NoError(t, err, "per-title failures are counted, not fatal")

	assert.Equal(t, 2, report.TitlesUpserted)
	assert.Equal(t, 1, report.TitlesFailed)

	var titles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM titles`).Scan(&titles))
	assert.Equal(t, 2, titles)
}

func TestSyncAllStopsOnMissingCursor(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			// claims more pages but gives nothing to fetch them with
			{Shows: []movienight.TitleDTO{movieDTO("1", "One")}, HasMore: true, NextCursor: ""},
		},
	}
	repo, _ := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.searchCalls))
}

func TestSyncAllFetchFailureReturnsPartialReport(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			// next cursor points past the canned pages, so page 2 is a 400
			{Shows: []movienight.TitleDTO{movieDTO("1", "One")}, HasMore: true, NextCursor: "page-9"},
		},
	}
	repo, _ := newSyncRepo(t, fake)

	report, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 2")
	assert.Equal(t, 1, report.Pages, "first page's work survives")
	assert.Equal(t, 1, report.TitlesUpserted)
	assert.Equal(t, "page-9", report.LastCursor)
}

func TestSyncTitleSeriesFetchesEpisodes(t *testing.T) {
	series := movieDTO("s1", "The Wire")
	series.ShowType = "series"
	fake := &fakeCatalogAPI{
		shows: map[string]movienight.TitleDTO{"s1": series},
		episodes: map[string][]movienight.EpisodeDTO{
			"s1": {
				{ID: "e1", SeasonNumber: 1, EpisodeNumber: 1, Name: "The Target"},
				{ID: "e2", SeasonNumber: 1, EpisodeNumber: 2, Name: "The Detail"},
			},
		},
	}
	repo, db := newSyncRepo(t, fake)

	report, err := repo.SyncTitle(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TitlesUpserted)
	assert.Equal(t, 2, report.EpisodesUpserted)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.episodeCalls))

	var eps int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM episodes`).Scan(&eps))
	assert.Equal(t, 2, eps)
}

func TestSyncTitleMovieSkipsEpisodes(t *testing.T) {
	fake := &fakeCatalogAPI{
		shows: map[string]movienight.TitleDTO{"m1": movieDTO("m1", "Heat")},
	}
	repo, _ := newSyncRepo(t, fake)

	report, err := repo.SyncTitle(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.EpisodesUpserted)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.episodeCalls))
}

func TestSyncTitleUnknownIDFails(t *testing.T) {
	fake := &fakeCatalogAPI{shows: map[string]movienight.TitleDTO{}}
	repo, _ := newSyncRepo(t, fake)

	report, err := repo.SyncTitle(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, 0, report.TitlesUpserted)
}

func TestSyncTopShowsReconciles(t *testing.T) {
	fake := &fakeCatalogAPI{
		top: []movienight.TitleDTO{movieDTO("a", "A"), movieDTO("b", "B"), movieDTO("c", "C")},
	}
	repo, db := newSyncRepo(t, fake)

	_, err := repo.SyncTopShows(context.Background(), models.Netflix)
	require.NoError(t, err)

	ranked, err := repo.Catalog.TopShowsList(context.Background(), models.Netflix)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, "C", ranked[2].Name)

	// the list rotates: A drops out, D enters at rank 1
	fake.top = []movienight.TitleDTO{movieDTO("d", "D"), movieDTO("b", "B"), movieDTO("c", "C")}
	_, err = repo.SyncTopShows(context.Background(), models.Netflix)
	require.NoError(t, err)

	ranked, err = repo.Catalog.TopShowsList(context.Background(), models.Netflix)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "D", ranked[0].Name)

	// A's title row survives even though its ranking did not
	var titles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM titles`).Scan(&titles))
	assert.Equal(t, 4, titles)
}

func TestPersistTitleTreeIdempotent(t *testing.T) {
	fake := &fakeCatalogAPI{
		pages: []movienight.SearchPage{
			{Shows: []movienight.TitleDTO{movieDTO("1", "One")}, HasMore: false},
		},
	}
	repo, db := newSyncRepo(t, fake)

	_, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.NoError(t, err)
	report, err := repo.SyncAll(context.Background(), "netflix", "", 0)
	require.NoError(t, err)

	// second run resolves existing rows instead of duplicating them
	assert.Equal(t, 1, report.TitlesUpserted)
	assert.Equal(t, 0, report.GenresUpserted)
	assert.Equal(t, 0, report.PeopleUpserted)

	for _, table := range []string{"titles", "genres", "people", "external_ids", "title_genres", "credits"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}
