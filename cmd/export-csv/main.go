package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"nextuptv/pkg/database"
)

func main() {
	var (
		titlesOut   = flag.String("titles", "data/titles.csv", "output CSV path for titles")
		topShowsOut = flag.String("top-shows", "data/top_shows.csv", "output CSV path for top-shows rankings")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportTitles(ctx, db, *titlesOut); err != nil {
		log.Fatalf("export titles failed: %v", err)
	}
	if err := exportTopShows(ctx, db, *topShowsOut); err != nil {
		log.Fatalf("export top-shows failed: %v", err)
	}

	log.Printf("✅ exported titles to %s and top-shows to %s", *titlesOut, *topShowsOut)
}

func exportTitles(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "mon_id", "kind", "name", "year", "runtime_min", "genres", "synopsis"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT t.id, t.mon_id, t.kind, t.name, t.year, t.runtime_min,
               COALESCE(GROUP_CONCAT(g.name, '|'), ''), t.synopsis
        FROM titles t
        LEFT JOIN title_genres tg ON tg.title_id = t.id
        LEFT JOIN genres g ON g.id = tg.genre_id
        GROUP BY t.id
        ORDER BY t.name
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			monID    string
			kind     string
			name     string
			year     sql.NullInt64
			runtime  sql.NullInt64
			genres   string
			synopsis sql.NullString
		)

		if err := rows.Scan(&id, &monID, &kind, &name, &year, &runtime, &genres, &synopsis); err != nil {
			return err
		}

		yearStr := ""
		if year.Valid {
			yearStr = strconv.FormatInt(year.Int64, 10)
		}
		runtimeStr := ""
		if runtime.Valid {
			runtimeStr = strconv.FormatInt(runtime.Int64, 10)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			monID,
			kind,
			name,
			yearStr,
			runtimeStr,
			genres,
			synopsis.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportTopShows(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"service", "rank", "title", "mon_id", "updated_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT p.service, p.rank, t.name, t.mon_id, p.updated_at
        FROM title_popularities p
        JOIN titles t ON t.id = p.title_id
        ORDER BY p.service, p.rank
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			service   string
			rank      int64
			title     string
			monID     string
			updatedAt sql.NullTime
		)

		if err := rows.Scan(&service, &rank, &title, &monID, &updatedAt); err != nil {
			return err
		}

		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			service,
			strconv.FormatInt(rank, 10),
			title,
			monID,
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
