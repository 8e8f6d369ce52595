package catalog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nextuptv/internal/movienight"
	"nextuptv/pkg/models"
)

// UnknownProviderID marks an external-id row whose deep-link URL had no
// extractable provider-native id. Stored rather than dropped so the option
// is still queryable.
const UnknownProviderID = "unknown"

var providerIDRegex = regexp.MustCompile(`/(title|watch)/(\d+)`)

// TitleFromDTO maps a remote title to its local entity. Kind is classified
// from the free-text show type; anything that isn't recognizably a series
// (including empty) is a movie.
func TitleFromDTO(dto *movienight.TitleDTO) models.Title {
	kind := models.KindMovie
	switch strings.ToLower(strings.TrimSpace(dto.ShowType)) {
	case "series", "tv", "show":
		kind = models.KindSeries
	}

	imageSet := ""
	if dto.ImageSet != nil {
		if b, err := json.Marshal(dto.ImageSet); err == nil {
			imageSet = string(b)
		}
	}

	return models.Title{
		MonID:          dto.ID,
		Kind:           kind,
		Name:           dto.Title,
		Synopsis:       dto.Overview,
		Year:           dto.ReleaseYear,
		RuntimeMin:     dto.Runtime,
		ImageSetJSON:   imageSet,
		LocalUpdatedAt: time.Now().UTC(),
	}
}

// GenreNames trims, drops blanks and dedups case-insensitively, keeping
// first-seen order.
func GenreNames(dto *movienight.TitleDTO) []string {
	seen := make(map[string]struct{}, len(dto.Genres))
	out := make([]string, 0, len(dto.Genres))
	for _, g := range dto.Genres {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// CastNames and DirectorNames trim, drop blanks and dedup by exact string
// within the one title's credit list. Global dedup happens at the DAO layer
// by name lookup.
func CastNames(dto *movienight.TitleDTO) []string {
	return dedupNames(dto.Cast)
}

func DirectorNames(dto *movienight.TitleDTO) []string {
	return dedupNames(dto.Directors)
}

func dedupNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ExternalIDsFromDTO filters the per-country streaming options down to the
// configured country and maps each known service to an external-id row.
// One row per (title, provider): the first option for a service wins.
func ExternalIDsFromDTO(dto *movienight.TitleDTO, country string, titleID int64) []models.ExternalID {
	opts := dto.StreamingOpts[country]
	if len(opts) == 0 {
		return nil
	}

	out := make([]models.ExternalID, 0, len(opts))
	taken := make(map[models.StreamingService]struct{}, len(opts))
	for _, opt := range opts {
		svc, ok := models.ParseStreamingService(opt.Service.ID)
		if !ok {
			continue
		}
		if _, dup := taken[svc]; dup {
			continue
		}
		taken[svc] = struct{}{}

		out = append(out, models.ExternalID{
			EntityID:   titleID,
			Provider:   svc,
			ProviderID: ExtractProviderID(opt.Link, opt.VideoLink),
			Available:  true,
			Price:      priceCents(opt.Price),
		})
	}
	return out
}

// ExtractProviderID pulls the provider-native numeric id out of a deep-link
// URL (the "/title/<digits>" or "/watch/<digits>" segment). Falls back to
// the unknown sentinel; extraction failure is not an error.
func ExtractProviderID(urls ...string) string {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if m := providerIDRegex.FindStringSubmatch(u); m != nil {
			return m[2]
		}
	}
	return UnknownProviderID
}

func priceCents(p *movienight.PriceDTO) int {
	if p == nil || p.Amount == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(p.Amount), 64)
	if err != nil || amount < 0 {
		return 0
	}
	return int(amount*100 + 0.5)
}

// EpisodeFromDTO maps one remote episode under its series title.
func EpisodeFromDTO(dto *movienight.EpisodeDTO, titleID int64) models.Episode {
	imageSet := ""
	if dto.ImageSet != nil {
		if b, err := json.Marshal(dto.ImageSet); err == nil {
			imageSet = string(b)
		}
	}

	return models.Episode{
		TitleID:         titleID,
		MonID:           dto.ID,
		SeasonNumber:    dto.SeasonNumber,
		EpisodeNumber:   dto.EpisodeNumber,
		Name:            dto.Name,
		Synopsis:        dto.Synopsis,
		RuntimeMin:      dto.RuntimeMin,
		AirDate:         dto.AirDate,
		ImageSetJSON:    imageSet,
		SourceUpdatedAt: dto.UpdatedAt,
		LocalUpdatedAt:  time.Now().UTC(),
	}
}
