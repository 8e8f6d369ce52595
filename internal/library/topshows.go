package library

import (
	"context"
	"fmt"
	"log"
	"time"

	synchub "nextuptv/internal/sync"
	"nextuptv/pkg/models"
)

// SyncTopShows fetches the provider's current top list, makes sure every
// ranked title exists locally, then reconciles the stored set to match the
// fresh list exactly (stale rows deleted, survivors re-ranked).
func (r *Repo) SyncTopShows(ctx context.Context, service models.StreamingService) (*Report, error) {
	report := &Report{
		StartedAt: time.Now().UTC(),
	}

	shows, err := r.API.TopShows(ctx, string(service))
	if err != nil {
		return report, fmt.Errorf("fetch top shows for %s: %w", service, err)
	}

	titleIDs := make([]int64, 0, len(shows))
	for i := range shows {
		dto := &shows[i]
		// the DTO is already in hand, persist it directly instead of
		// re-fetching through the single-title path
		if err := r.persistTitleTree(ctx, dto, report); err != nil {
			log.Printf("[library] top show %s (%q) failed: %v", dto.ID, dto.Title, err)
			report.TitlesFailed++
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			continue
		}
		title, err := r.Catalog.GetTitleByMonID(ctx, dto.ID)
		if err != nil {
			return report, err
		}
		if title == nil {
			continue
		}
		titleIDs = append(titleIDs, title.ID)
	}

	if err := r.Catalog.UpdateTopShows(ctx, service, models.TopShows, titleIDs); err != nil {
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	if r.Hub != nil {
		go r.Hub.BroadcastJSON(synchub.TopShowsEvent{
			Type:    synchub.EventTopShows,
			Service: string(service),
			Count:   len(titleIDs),
			At:      time.Now().UTC(),
		})
	}
	log.Printf("[library] top shows %s reconciled: %d titles", service, len(titleIDs))
	return report, nil
}
