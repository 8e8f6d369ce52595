package resume

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"nextuptv/internal/catalog"
	"nextuptv/pkg/models"
)

// Repo stores scraped "continue watching" rows and links them back to the
// synced catalog after the fact. Entries are deduplicated by a content hash
// so re-ingesting the same scrape is a no-op.
type Repo struct {
	DB      *sql.DB
	Catalog *catalog.Repo
}

func NewRepo(db *sql.DB, cat *catalog.Repo) *Repo {
	return &Repo{DB: db, Catalog: cat}
}

// HashKey derives the dedup key from the fields that identify one resume
// row to a provider.
func HashKey(e models.ResumeEntry) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d",
		e.Service, e.ServiceItemID, strings.ToLower(strings.TrimSpace(e.TitleText)),
		e.SeasonNumber, e.EpisodeNumber)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// UpsertAll replaces entries by hash key. Replace (not ignore) because the
// resume index moves every time the user watches something.
func (r *Repo) UpsertAll(ctx context.Context, entries []models.ResumeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resume tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.HashKey == "" {
			e.HashKey = HashKey(e)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resume_entries
				(service, service_item_id, title_text, season_number, episode_number,
				 resume_index, resolved_title_id, resolved_episode_id, hash_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(hash_key) DO UPDATE SET
				resume_index = excluded.resume_index
		`, e.Service, e.ServiceItemID, e.TitleText, e.SeasonNumber, e.EpisodeNumber,
			e.ResumeIndex, e.ResolvedTitleID, e.ResolvedEpisodeID, e.HashKey); err != nil {
			return fmt.Errorf("upsert resume entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resume: %w", err)
	}
	return nil
}

// ResolveUnresolved links unresolved entries to the local catalog, best
// effort: provider-native id first, then a case-insensitive title match,
// then the episode by (title, season, episode). Returns how many entries
// were resolved.
func (r *Repo) ResolveUnresolved(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		max = 100
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, service, service_item_id, title_text, season_number, episode_number
		FROM resume_entries
		WHERE resolved_title_id IS NULL
		ORDER BY resume_index
		LIMIT ?
	`, max)
	if err != nil {
		return 0, fmt.Errorf("find unresolved: %w", err)
	}

	type pending struct {
		id            int64
		service       models.StreamingService
		serviceItemID string
		titleText     string
		season        int
		episode       int
	}
	var batch []pending
	for rows.Next() {
		var (
			p       pending
			itemID  sql.NullString
			season  sql.NullInt64
			episode sql.NullInt64
		)
		if err := rows.Scan(&p.id, &p.service, &itemID, &p.titleText, &season, &episode); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan unresolved: %w", err)
		}
		p.serviceItemID = itemID.String
		p.season = int(season.Int64)
		p.episode = int(episode.Int64)
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows err: %w", err)
	}

	resolved := 0
	for _, p := range batch {
		title, err := r.matchTitle(ctx, p.service, p.serviceItemID, p.titleText)
		if err != nil {
			log.Printf("[resume] match entry %d: %v", p.id, err)
			continue
		}
		if title == nil {
			continue
		}

		var episodeID any
		if p.season > 0 && p.episode > 0 {
			id, err := r.Catalog.FindEpisodeID(ctx, title.ID, p.season, p.episode)
			if err == nil && id > 0 {
				episodeID = id
			}
		}

		if _, err := r.DB.ExecContext(ctx, `
			UPDATE resume_entries
			SET resolved_title_id = ?, resolved_episode_id = ?
			WHERE id = ?
		`, title.ID, episodeID, p.id); err != nil {
			return resolved, fmt.Errorf("mark resolved: %w", err)
		}
		resolved++
	}
	return resolved, nil
}

func (r *Repo) matchTitle(ctx context.Context, service models.StreamingService, itemID, titleText string) (*models.Title, error) {
	if itemID != "" {
		t, err := r.Catalog.FindTitleByExternal(ctx, service, itemID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	if strings.TrimSpace(titleText) == "" {
		return nil, nil
	}
	return r.Catalog.FindTitleByName(ctx, titleText)
}

// Feed returns recent entries for the UI, resolved title fields joined in.
func (r *Repo) Feed(ctx context.Context, limit int) ([]models.ResumeFeedItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT re.id, re.service, re.service_item_id, re.title_text,
		       re.season_number, re.episode_number, re.resume_index,
		       re.resolved_title_id, re.resolved_episode_id,
		       t.name, t.image_set_json
		FROM resume_entries re
		LEFT JOIN titles t ON t.id = re.resolved_title_id
		ORDER BY re.resume_index
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("resume feed: %w", err)
	}
	defer rows.Close()

	out := make([]models.ResumeFeedItem, 0, limit)
	for rows.Next() {
		var (
			item       models.ResumeFeedItem
			itemID     sql.NullString
			season     sql.NullInt64
			episode    sql.NullInt64
			titleID    sql.NullInt64
			episodeID  sql.NullInt64
			titleName  sql.NullString
			titleImage sql.NullString
		)
		if err := rows.Scan(
			&item.Entry.ID, &item.Entry.Service, &itemID, &item.Entry.TitleText,
			&season, &episode, &item.Entry.ResumeIndex,
			&titleID, &episodeID, &titleName, &titleImage,
		); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		item.Entry.ServiceItemID = itemID.String
		item.Entry.SeasonNumber = int(season.Int64)
		item.Entry.EpisodeNumber = int(episode.Int64)
		if titleID.Valid {
			v := titleID.Int64
			item.Entry.ResolvedTitleID = &v
		}
		if episodeID.Valid {
			v := episodeID.Int64
			item.Entry.ResolvedEpisodeID = &v
		}
		item.ResolvedTitleName = titleName.String
		item.ResolvedTitleImage = titleImage.String
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
