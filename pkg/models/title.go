package models

import "time"

// Title is one movie or series row. monID is the canonical id assigned by
// the upstream catalog API and is unique across the table; everything else
// is display metadata captured at first sync (first write wins).
type Title struct {
	ID             int64     `json:"id"`
	MonID          string    `json:"mon_id"`
	Kind           TitleKind `json:"kind"`
	Name           string    `json:"name"`
	Synopsis       string    `json:"synopsis,omitempty"`
	Year           int       `json:"year,omitempty"`
	RuntimeMin     int       `json:"runtime_min,omitempty"`
	ImageSetJSON   string    `json:"image_set_json,omitempty"`
	LocalUpdatedAt time.Time `json:"local_updated_at"`
}

// Genre rows are deduplicated case-insensitively by name.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Person rows are deduplicated by exact trimmed name. The upstream API
// exposes credits as bare name strings with no person ids, so two real
// people sharing a name collapse into one row.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type TitleGenreRef struct {
	ID      int64 `json:"id"`
	TitleID int64 `json:"title_id"`
	GenreID int64 `json:"genre_id"`
}

type Credit struct {
	ID       int64      `json:"id"`
	TitleID  int64      `json:"title_id"`
	PersonID int64      `json:"person_id"`
	Role     CreditRole `json:"role"`
}

// ExternalID maps a local title to a provider-native id, unique on
// (entity_id, provider). ProviderID may be the "unknown" sentinel when the
// deep-link URL had no extractable id.
type ExternalID struct {
	ID         int64            `json:"id"`
	EntityID   int64            `json:"entity_id"`
	Provider   StreamingService `json:"provider"`
	ProviderID string           `json:"provider_id"`
	Available  bool             `json:"available"`
	Price      int              `json:"price"` // cents; 0 when included with subscription
}

// Popularity ranks a title for a (service, type) pair. The stored set is an
// exact materialized view of the latest top-N list, fully reconciled on
// every sync.
type Popularity struct {
	ID        int64            `json:"id"`
	Service   StreamingService `json:"service"`
	Type      PopularityType   `json:"popularity_type"`
	TitleID   int64            `json:"title_id"`
	Rank      int              `json:"rank"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Episode links to a series Title, unique on (title_id, season, episode).
type Episode struct {
	ID              int64     `json:"id"`
	TitleID         int64     `json:"title_id"`
	MonID           string    `json:"mon_id"`
	SeasonNumber    int       `json:"season_number"`
	EpisodeNumber   int       `json:"episode_number"`
	Name            string    `json:"name,omitempty"`
	Synopsis        string    `json:"synopsis,omitempty"`
	RuntimeMin      int       `json:"runtime_min,omitempty"`
	AirDate         string    `json:"air_date,omitempty"`
	ImageSetJSON    string    `json:"image_set_json,omitempty"`
	SourceUpdatedAt int64     `json:"source_updated_at,omitempty"`
	LocalUpdatedAt  time.Time `json:"local_updated_at"`
}
