package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"nextuptv/internal/catalog"
	"nextuptv/pkg/database"
	"nextuptv/pkg/models"
)

// Seeds a catalog from a CSV produced by export-csv (or written by hand).
// Rows go through the same natural-key upserts the API sync uses, so
// re-importing the same file is a no-op.
func main() {
	titlesIn := flag.String("titles", "data/titles.csv", "input CSV path for titles")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	n, err := importTitles(ctx, db, *titlesIn)
	if err != nil {
		log.Fatalf("import titles failed: %v", err)
	}

	log.Printf("✅ imported %d titles from %s", n, *titlesIn)
}

func importTitles(ctx context.Context, db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	repo := catalog.NewRepo(db)
	imported := 0

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, err
		}
		if len(row) == 0 {
			continue
		}

		monID := valueAt(header, row, "mon_id")
		name := valueAt(header, row, "name")
		if monID == "" || name == "" {
			continue
		}

		kind := models.KindMovie
		if strings.EqualFold(valueAt(header, row, "kind"), string(models.KindSeries)) {
			kind = models.KindSeries
		}

		year, err := parseOptionalInt(valueAt(header, row, "year"))
		if err != nil {
			return imported, fmt.Errorf("parse year for %s: %w", monID, err)
		}
		runtime, err := parseOptionalInt(valueAt(header, row, "runtime_min"))
		if err != nil {
			return imported, fmt.Errorf("parse runtime_min for %s: %w", monID, err)
		}

		title := models.Title{
			MonID:      monID,
			Kind:       kind,
			Name:       name,
			Synopsis:   valueAt(header, row, "synopsis"),
			Year:       year,
			RuntimeMin: runtime,
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return imported, err
		}

		titleID, _, err := repo.UpsertTitle(ctx, tx, title)
		if err != nil {
			tx.Rollback()
			return imported, fmt.Errorf("upsert %s: %w", monID, err)
		}

		if raw := valueAt(header, row, "genres"); raw != "" {
			names := strings.Split(raw, "|")
			genreIDs, _, err := repo.UpsertGenresByName(ctx, tx, names)
			if err != nil {
				tx.Rollback()
				return imported, fmt.Errorf("genres for %s: %w", monID, err)
			}
			if _, err := repo.UpsertTitleGenres(ctx, tx, titleID, genreIDs); err != nil {
				tx.Rollback()
				return imported, fmt.Errorf("genre refs for %s: %w", monID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return n, nil
}
