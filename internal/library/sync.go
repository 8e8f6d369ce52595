package library

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"nextuptv/internal/catalog"
	"nextuptv/internal/movienight"
	synchub "nextuptv/internal/sync"
	"nextuptv/pkg/models"
)

// Repo drives the sync pipeline: fetch a page, map DTOs, persist each
// title-tree in its own transaction, accumulate the report, advance the
// cursor. At most one sync is expected to run at a time; the natural-key
// upserts keep a racing second run from corrupting rows, but interleaved
// partial writes across title-trees are not guarded against.
type Repo struct {
	API     *movienight.Client
	DB      *sql.DB
	Catalog *catalog.Repo
	Hub     *synchub.Hub // optional event feed
}

func NewRepo(api *movienight.Client, db *sql.DB, cat *catalog.Repo) *Repo {
	return &Repo{API: api, DB: db, Catalog: cat}
}

// SyncAll runs a full library sync for one catalog. startCursor resumes a
// previous run; maxPages caps the number of fetched pages (0 = no cap).
//
// Per-title failures roll back that title's transaction, are logged,
// counted in TitlesFailed and do not abort the run. A page fetch failure
// (after the client's retries) aborts the run and returns the partial
// report alongside the error.
func (r *Repo) SyncAll(ctx context.Context, catalogName, startCursor string, maxPages int) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Catalog:   catalogName,
		StartedAt: time.Now().UTC(),
	}
	if err := r.insertRun(ctx, report); err != nil {
		return report, err
	}

	cursor := startCursor
	for {
		page, err := r.API.SearchPage(ctx, catalogName, cursor)
		if err != nil {
			report.FinishedAt = time.Now().UTC()
			_ = r.updateRun(context.WithoutCancel(ctx), report)
			return report, fmt.Errorf("fetch page %d: %w", report.Pages+1, err)
		}

		pageTitles := 0
		pageFailed := 0
		for i := range page.Shows {
			dto := &page.Shows[i]
			if err := r.persistTitleTree(ctx, dto, report); err != nil {
				log.Printf("[library] title %s (%q) failed: %v", dto.ID, dto.Title, err)
				report.TitlesFailed++
				pageFailed++
				r.broadcastTitleFailed(report, dto.ID, err)
				if ctx.Err() != nil {
					report.FinishedAt = time.Now().UTC()
					_ = r.updateRun(context.WithoutCancel(ctx), report)
					return report, ctx.Err()
				}
				continue
			}
			pageTitles++
		}

		report.Pages++
		report.LastCursor = page.NextCursor
		if err := r.updateRun(ctx, report); err != nil {
			log.Printf("[library] persist run state: %v", err)
		}
		r.broadcastPage(report, pageTitles, pageFailed, page.NextCursor)

		if !page.HasMore {
			break
		}
		if maxPages > 0 && report.Pages >= maxPages {
			break
		}
		if page.NextCursor == "" {
			// server claims more pages but gave no cursor; stop rather than loop
			log.Printf("[library] hasMore without cursor after page %d, stopping", report.Pages)
			break
		}
		cursor = page.NextCursor
	}

	report.FinishedAt = time.Now().UTC()
	if err := r.updateRun(ctx, report); err != nil {
		log.Printf("[library] persist run state: %v", err)
	}
	r.broadcastReport(report)
	log.Printf("[library] sync %s done: %d pages, %d titles, %d failed",
		catalogName, report.Pages, report.TitlesUpserted, report.TitlesFailed)
	return report, nil
}

// SyncTitle fetches one title and persists its tree; for series the episode
// list is fetched and upserted too. The report is returned together with
// any error so callers can tell a failed sync from an empty one.
func (r *Repo) SyncTitle(ctx context.Context, monID string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	dto, err := r.API.GetShow(ctx, monID)
	if err != nil {
		return report, fmt.Errorf("fetch title %s: %w", monID, err)
	}

	if err := r.persistTitleTree(ctx, dto, report); err != nil {
		return report, fmt.Errorf("persist title %s: %w", monID, err)
	}

	if catalog.TitleFromDTO(dto).Kind == models.KindSeries {
		if err := r.syncEpisodes(ctx, dto.ID, report); err != nil {
			// episodes are additive detail; the title itself is committed
			log.Printf("[library] episodes for %s failed: %v", monID, err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// persistTitleTree writes one title and all its derived rows inside a
// single transaction: title, external ids, genres + refs, cast then
// directors + refs. Everything commits or rolls back together.
func (r *Repo) persistTitleTree(ctx context.Context, dto *movienight.TitleDTO, report *Report) error {
	if strings.TrimSpace(dto.ID) == "" {
		return fmt.Errorf("title %q has no catalog id", dto.Title)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// 1) Title
	titleID, _, err := r.Catalog.UpsertTitle(ctx, tx, catalog.TitleFromDTO(dto))
	if err != nil {
		return err
	}
	report.TitlesUpserted++

	// 2) External ids from the US streaming options
	externals := catalog.ExternalIDsFromDTO(dto, r.API.Country, titleID)
	n, err := r.Catalog.UpsertExternalIDs(ctx, tx, externals)
	if err != nil {
		return err
	}
	report.ExternalIDsUpserted += n

	// 3) Genres, then cross-refs
	genreIDs, genresNew, err := r.Catalog.UpsertGenresByName(ctx, tx, catalog.GenreNames(dto))
	if err != nil {
		return err
	}
	report.GenresUpserted += genresNew
	refs, err := r.Catalog.UpsertTitleGenres(ctx, tx, titleID, genreIDs)
	if err != nil {
		return err
	}
	report.TitleGenreRefs += refs

	// 4) People: cast, then directors
	castIDs, castNew, err := r.Catalog.UpsertPeople(ctx, tx, catalog.CastNames(dto))
	if err != nil {
		return err
	}
	castRefs, err := r.Catalog.UpsertCredits(ctx, tx, titleID, castIDs, models.RoleCast)
	if err != nil {
		return err
	}

	directorIDs, directorsNew, err := r.Catalog.UpsertPeople(ctx, tx, catalog.DirectorNames(dto))
	if err != nil {
		return err
	}
	directorRefs, err := r.Catalog.UpsertCredits(ctx, tx, titleID, directorIDs, models.RoleDirector)
	if err != nil {
		return err
	}

	report.PeopleUpserted += castNew + directorsNew
	report.TitlePersonRefs += castRefs + directorRefs

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit title tree: %w", err)
	}
	return nil
}

func (r *Repo) syncEpisodes(ctx context.Context, monID string, report *Report) error {
	dtos, err := r.API.GetEpisodes(ctx, monID)
	if err != nil {
		return err
	}
	if len(dtos) == 0 {
		return nil
	}

	title, err := r.Catalog.GetTitleByMonID(ctx, monID)
	if err != nil {
		return err
	}
	if title == nil {
		return fmt.Errorf("title %s missing after upsert", monID)
	}

	eps := make([]models.Episode, 0, len(dtos))
	for i := range dtos {
		eps = append(eps, catalog.EpisodeFromDTO(&dtos[i], title.ID))
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin episodes tx: %w", err)
	}
	defer tx.Rollback()

	n, err := r.Catalog.UpsertEpisodes(ctx, tx, eps)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit episodes: %w", err)
	}
	report.EpisodesUpserted += n
	return nil
}

func (r *Repo) insertRun(ctx context.Context, report *Report) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sync_runs (id, catalog, started_at) VALUES (?, ?, ?)
	`, report.RunID, report.Catalog, report.StartedAt)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (r *Repo) updateRun(ctx context.Context, report *Report) error {
	var finished any
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE sync_runs
		SET pages = ?, titles_upserted = ?, titles_failed = ?, last_cursor = ?, finished_at = ?
		WHERE id = ?
	`, report.Pages, report.TitlesUpserted, report.TitlesFailed, report.LastCursor, finished, report.RunID)
	if err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	return nil
}

func (r *Repo) broadcastPage(report *Report, titles, failed int, nextCursor string) {
	if r.Hub == nil {
		return
	}
	go r.Hub.BroadcastJSON(synchub.PageEvent{
		Type:       synchub.EventPage,
		RunID:      report.RunID,
		Catalog:    report.Catalog,
		Page:       report.Pages,
		Titles:     titles,
		Failed:     failed,
		NextCursor: nextCursor,
		At:         time.Now().UTC(),
	})
}

func (r *Repo) broadcastTitleFailed(report *Report, monID string, err error) {
	if r.Hub == nil {
		return
	}
	go r.Hub.BroadcastJSON(synchub.TitleFailedEvent{
		Type:    synchub.EventTitleFailed,
		RunID:   report.RunID,
		Catalog: report.Catalog,
		MonID:   monID,
		Reason:  err.Error(),
		At:      time.Now().UTC(),
	})
}

func (r *Repo) broadcastReport(report *Report) {
	if r.Hub == nil {
		return
	}
	go r.Hub.BroadcastJSON(synchub.ReportEvent{
		Type:   synchub.EventReport,
		RunID:  report.RunID,
		Report: report,
		At:     time.Now().UTC(),
	})
}
