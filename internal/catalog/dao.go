package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"nextuptv/pkg/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the upsert primitives can
// run inside a caller-owned transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo holds the catalog tables. SQLite has no multi-column-key upsert that
// also hands back the surviving row id, so every entity follows the same
// two-phase idiom: INSERT OR IGNORE, then a point lookup by natural key for
// the rows the insert skipped. Calling any upsert twice with the same input
// yields the same ids and no duplicates.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// UpsertTitle inserts a title or resolves the existing row by mon_id.
// Metadata is first-write-wins: a re-synced title only confirms existence.
func (r *Repo) UpsertTitle(ctx context.Context, q DBTX, t models.Title) (int64, bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO titles (mon_id, kind, name, synopsis, year, runtime_min, image_set_json, local_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.MonID, t.Kind, t.Name, t.Synopsis, t.Year, t.RuntimeMin, t.ImageSetJSON, t.LocalUpdatedAt)
	if err != nil {
		return 0, false, fmt.Errorf("insert title: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("title insert id: %w", err)
		}
		return id, true, nil
	}

	var id int64
	if err := q.QueryRowContext(ctx, `
		SELECT id FROM titles WHERE mon_id = ? LIMIT 1
	`, t.MonID).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("resolve title %q after ignore: %w", t.MonID, err)
	}
	return id, false, nil
}

// UpsertGenresByName upserts by case-insensitive name and returns ids
// positionally aligned with names, plus the number of newly created rows.
func (r *Repo) UpsertGenresByName(ctx context.Context, q DBTX, names []string) ([]int64, int, error) {
	if len(names) == 0 {
		return nil, 0, nil
	}

	ids := make([]int64, len(names))
	created := 0
	for i, name := range names {
		res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO genres (name) VALUES (?)`, name)
		if err != nil {
			return nil, 0, fmt.Errorf("insert genre %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			id, err := res.LastInsertId()
			if err != nil {
				return nil, 0, fmt.Errorf("genre insert id: %w", err)
			}
			ids[i] = id
			created++
			continue
		}
		if err := q.QueryRowContext(ctx, `
			SELECT id FROM genres WHERE name = ? COLLATE NOCASE LIMIT 1
		`, name).Scan(&ids[i]); err != nil {
			return nil, 0, fmt.Errorf("resolve genre %q: %w", name, err)
		}
	}
	return ids, created, nil
}

// UpsertPeople upserts by exact name and returns aligned ids plus the count
// of new rows.
func (r *Repo) UpsertPeople(ctx context.Context, q DBTX, names []string) ([]int64, int, error) {
	if len(names) == 0 {
		return nil, 0, nil
	}

	ids := make([]int64, len(names))
	created := 0
	for i, name := range names {
		res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO people (name) VALUES (?)`, name)
		if err != nil {
			return nil, 0, fmt.Errorf("insert person %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			id, err := res.LastInsertId()
			if err != nil {
				return nil, 0, fmt.Errorf("person insert id: %w", err)
			}
			ids[i] = id
			created++
			continue
		}
		if err := q.QueryRowContext(ctx, `
			SELECT id FROM people WHERE name = ? LIMIT 1
		`, name).Scan(&ids[i]); err != nil {
			return nil, 0, fmt.Errorf("resolve person %q: %w", name, err)
		}
	}
	return ids, created, nil
}

// UpsertExternalIDs inserts new rows and refreshes the mutable columns
// (provider_id, available, price) of rows that already existed for the
// (entity_id, provider) key. Returns the number of rows processed.
func (r *Repo) UpsertExternalIDs(ctx context.Context, q DBTX, items []models.ExternalID) (int, error) {
	for _, e := range items {
		res, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO external_ids (entity_id, provider, provider_id, available, price)
			VALUES (?, ?, ?, ?, ?)
		`, e.EntityID, e.Provider, e.ProviderID, e.Available, e.Price)
		if err != nil {
			return 0, fmt.Errorf("insert external id: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}
		if _, err := q.ExecContext(ctx, `
			UPDATE external_ids
			SET provider_id = ?, available = ?, price = ?
			WHERE entity_id = ? AND provider = ?
		`, e.ProviderID, e.Available, e.Price, e.EntityID, e.Provider); err != nil {
			return 0, fmt.Errorf("refresh external id: %w", err)
		}
	}
	return len(items), nil
}

// UpsertTitleGenres asserts the cross-refs for one title; duplicates are
// ignored by the (title_id, genre_id) index.
func (r *Repo) UpsertTitleGenres(ctx context.Context, q DBTX, titleID int64, genreIDs []int64) (int, error) {
	for _, gid := range genreIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO title_genres (title_id, genre_id) VALUES (?, ?)
		`, titleID, gid); err != nil {
			return 0, fmt.Errorf("insert title_genre ref: %w", err)
		}
	}
	return len(genreIDs), nil
}

// UpsertCredits asserts title<->person cross-refs with the given role.
func (r *Repo) UpsertCredits(ctx context.Context, q DBTX, titleID int64, personIDs []int64, role models.CreditRole) (int, error) {
	for _, pid := range personIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO credits (title_id, person_id, role) VALUES (?, ?, ?)
		`, titleID, pid, role); err != nil {
			return 0, fmt.Errorf("insert credit ref: %w", err)
		}
	}
	return len(personIDs), nil
}

// UpsertEpisodes upserts by (title_id, season, episode) and refreshes the
// mutable metadata of existing rows. Returns rows processed.
func (r *Repo) UpsertEpisodes(ctx context.Context, q DBTX, eps []models.Episode) (int, error) {
	for _, e := range eps {
		res, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO episodes
				(title_id, mon_id, season_number, episode_number, name, synopsis,
				 runtime_min, air_date, image_set_json, source_updated_at, local_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.TitleID, e.MonID, e.SeasonNumber, e.EpisodeNumber, e.Name, e.Synopsis,
			e.RuntimeMin, e.AirDate, e.ImageSetJSON, e.SourceUpdatedAt, e.LocalUpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert episode: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}
		if _, err := q.ExecContext(ctx, `
			UPDATE episodes
			SET name = ?, synopsis = ?, runtime_min = ?, air_date = ?,
			    image_set_json = ?, source_updated_at = ?, local_updated_at = ?
			WHERE title_id = ? AND season_number = ? AND episode_number = ?
		`, e.Name, e.Synopsis, e.RuntimeMin, e.AirDate,
			e.ImageSetJSON, e.SourceUpdatedAt, e.LocalUpdatedAt,
			e.TitleID, e.SeasonNumber, e.EpisodeNumber); err != nil {
			return 0, fmt.Errorf("refresh episode: %w", err)
		}
	}
	return len(eps), nil
}

// UpdateTopShows reconciles the stored ranked set for (service, type)
// against titleIDs (rank = list position): rows absent from the new list
// are deleted, new entries inserted, surviving entries get a fresh rank and
// timestamp. The stored set afterwards equals the input set exactly.
func (r *Repo) UpdateTopShows(ctx context.Context, service models.StreamingService, ptype models.PopularityType, titleIDs []int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin top shows tx: %w", err)
	}
	defer tx.Rollback()

	if len(titleIDs) == 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM title_popularities WHERE service = ? AND popularity_type = ?
		`, service, ptype); err != nil {
			return fmt.Errorf("clear top shows: %w", err)
		}
		return tx.Commit()
	}

	placeholders := strings.Repeat("?,", len(titleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(titleIDs)+2)
	args = append(args, service, ptype)
	for _, id := range titleIDs {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM title_popularities
		WHERE service = ? AND popularity_type = ? AND title_id NOT IN (`+placeholders+`)
	`, args...); err != nil {
		return fmt.Errorf("delete stale top shows: %w", err)
	}

	now := time.Now().UTC()
	for rank, id := range titleIDs {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO title_popularities (service, popularity_type, title_id, rank, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, service, ptype, id, rank+1, now)
		if err != nil {
			return fmt.Errorf("insert top show: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE title_popularities
			SET rank = ?, updated_at = ?
			WHERE service = ? AND popularity_type = ? AND title_id = ?
		`, rank+1, now, service, ptype, id); err != nil {
			return fmt.Errorf("refresh top show: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit top shows: %w", err)
	}
	return nil
}
