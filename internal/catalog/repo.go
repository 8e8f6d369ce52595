package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"nextuptv/pkg/models"
)

// Read-side queries for the browse API. The sync pipeline is the only
// writer; everything here is read-only.

type ListQuery struct {
	Q      string // keyword search in title name
	Kind   string // MOVIE | SERIES
	Genre  string // single genre name, case-insensitive
	Limit  int
	Offset int
}

func (r *Repo) GetTitle(ctx context.Context, id int64) (*models.Title, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, mon_id, kind, name, synopsis, year, runtime_min, image_set_json, local_updated_at
		FROM titles
		WHERE id = ?
	`, id)
	return scanTitle(row)
}

func (r *Repo) GetTitleByMonID(ctx context.Context, monID string) (*models.Title, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, mon_id, kind, name, synopsis, year, runtime_min, image_set_json, local_updated_at
		FROM titles
		WHERE mon_id = ?
	`, monID)
	return scanTitle(row)
}

// FindTitleByExternal resolves a title through its provider-native id.
func (r *Repo) FindTitleByExternal(ctx context.Context, provider models.StreamingService, providerID string) (*models.Title, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT t.id, t.mon_id, t.kind, t.name, t.synopsis, t.year, t.runtime_min, t.image_set_json, t.local_updated_at
		FROM titles t
		JOIN external_ids x ON x.entity_id = t.id
		WHERE x.provider = ? AND x.provider_id = ?
		LIMIT 1
	`, provider, providerID)
	return scanTitle(row)
}

// FindTitleByName matches by case-insensitive trimmed name.
func (r *Repo) FindTitleByName(ctx context.Context, name string) (*models.Title, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, mon_id, kind, name, synopsis, year, runtime_min, image_set_json, local_updated_at
		FROM titles
		WHERE LOWER(name) = LOWER(?)
		LIMIT 1
	`, strings.TrimSpace(name))
	return scanTitle(row)
}

func (r *Repo) FindEpisodeID(ctx context.Context, titleID int64, season, episode int) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id FROM episodes
		WHERE title_id = ? AND season_number = ? AND episode_number = ?
		LIMIT 1
	`, titleID, season, episode).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find episode: %w", err)
	}
	return id, nil
}

func (r *Repo) CountTitles(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return total, nil
}

func (r *Repo) ListTitles(ctx context.Context, q ListQuery) ([]models.Title, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Title, 0, q.Limit)
	for rows.Next() {
		t, err := scanTitleRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var out []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type CreditRow struct {
	PersonID int64             `json:"person_id"`
	Name     string            `json:"name"`
	Role     models.CreditRole `json:"role"`
}

func (r *Repo) TitleCredits(ctx context.Context, titleID int64) ([]CreditRow, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.name, c.role
		FROM credits c
		JOIN people p ON p.id = c.person_id
		WHERE c.title_id = ?
		ORDER BY c.role, p.name
	`, titleID)
	if err != nil {
		return nil, fmt.Errorf("title credits: %w", err)
	}
	defer rows.Close()

	var out []CreditRow
	for rows.Next() {
		var c CreditRow
		if err := rows.Scan(&c.PersonID, &c.Name, &c.Role); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) TitleExternalIDs(ctx context.Context, titleID int64) ([]models.ExternalID, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, entity_id, provider, provider_id, available, price
		FROM external_ids
		WHERE entity_id = ?
		ORDER BY provider
	`, titleID)
	if err != nil {
		return nil, fmt.Errorf("title external ids: %w", err)
	}
	defer rows.Close()

	var out []models.ExternalID
	for rows.Next() {
		var e models.ExternalID
		if err := rows.Scan(&e.ID, &e.EntityID, &e.Provider, &e.ProviderID, &e.Available, &e.Price); err != nil {
			return nil, fmt.Errorf("scan external id: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// TopShowsList returns the reconciled ranked set for a service, rank order.
func (r *Repo) TopShowsList(ctx context.Context, service models.StreamingService) ([]models.Title, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.mon_id, t.kind, t.name, t.synopsis, t.year, t.runtime_min, t.image_set_json, t.local_updated_at
		FROM title_popularities p
		JOIN titles t ON t.id = p.title_id
		WHERE p.service = ? AND p.popularity_type = ?
		ORDER BY p.rank
	`, service, models.TopShows)
	if err != nil {
		return nil, fmt.Errorf("top shows: %w", err)
	}
	defer rows.Close()

	var out []models.Title
	for rows.Next() {
		t, err := scanTitleRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT t.id, t.mon_id, t.kind, t.name, t.synopsis, t.year, t.runtime_min, t.image_set_json, t.local_updated_at
		FROM titles t
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM titles t`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q.Q))+"%")
	}

	if k := strings.ToUpper(strings.TrimSpace(q.Kind)); k == string(models.KindMovie) || k == string(models.KindSeries) {
		where = append(where, "t.kind = ?")
		args = append(args, k)
	}

	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, `t.id IN (
			SELECT tg.title_id FROM title_genres tg
			JOIN genres ge ON ge.id = tg.genre_id
			WHERE ge.name = ? COLLATE NOCASE
		)`)
		args = append(args, g)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY t.name ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTitleInto(s rowScanner) (*models.Title, error) {
	var (
		t        models.Title
		synopsis sql.NullString
		year     sql.NullInt64
		runtime  sql.NullInt64
		imageSet sql.NullString
		updated  time.Time
	)
	if err := s.Scan(&t.ID, &t.MonID, &t.Kind, &t.Name, &synopsis, &year, &runtime, &imageSet, &updated); err != nil {
		return nil, err
	}
	t.Synopsis = synopsis.String
	t.Year = int(year.Int64)
	t.RuntimeMin = int(runtime.Int64)
	t.ImageSetJSON = imageSet.String
	t.LocalUpdatedAt = updated
	return &t, nil
}

func scanTitle(row *sql.Row) (*models.Title, error) {
	t, err := scanTitleInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan title: %w", err)
	}
	return t, nil
}

func scanTitleRows(rows *sql.Rows) (*models.Title, error) {
	t, err := scanTitleInto(rows)
	if err != nil {
		return nil, fmt.Errorf("scan title: %w", err)
	}
	return t, nil
}
