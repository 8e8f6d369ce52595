package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nextuptv/internal/catalog"
	"nextuptv/internal/library"
	"nextuptv/internal/movienight"
	"nextuptv/pkg/database"
	"nextuptv/pkg/models"
	"nextuptv/pkg/utils"
)

// Standalone sync runner. Does the same work as the API's /sync/library
// trigger but without the server: one-shot by default, periodic with -every.
func main() {
	catalogName := flag.String("catalog", "netflix", "catalog (service) to sync")
	cursor := flag.String("cursor", "", "resume from this cursor")
	maxPages := flag.Int("max-pages", 0, "stop after this many pages (0 = all)")
	topShows := flag.Bool("top-shows", false, "also reconcile the top-shows list")
	every := flag.Duration("every", 0, "re-run on this interval (0 = run once)")
	flag.Parse()

	cfg := utils.Load()
	if cfg.APIKey == "" {
		log.Fatal("NEXTUP_API_KEY is required")
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	api := movienight.NewClient(cfg.APIBaseURL, cfg.APIKey)
	api.Country = cfg.APICountry
	api.HTTP.Timeout = cfg.APITimeout

	repo := library.NewRepo(api, db, catalog.NewRepo(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		report, err := repo.SyncAll(ctx, *catalogName, *cursor, *maxPages)
		if err != nil {
			log.Printf("sync failed: %v (resume with -cursor=%q)", err, report.LastCursor)
		} else {
			log.Printf("sync done: pages=%d titles=%d failed=%d episodes=%d",
				report.Pages, report.TitlesUpserted, report.TitlesFailed, report.EpisodesUpserted)
		}

		if *topShows {
			service, ok := models.ParseStreamingService(*catalogName)
			if !ok {
				log.Printf("top-shows skipped: unknown service %q", *catalogName)
				return
			}
			if _, err := repo.SyncTopShows(ctx, service); err != nil {
				log.Printf("top-shows failed: %v", err)
			}
		}
	}

	runOnce()
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("sync runner stopped")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
