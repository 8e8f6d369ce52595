package library

import "time"

// Report accumulates counters across the pages of one sync run. Counters
// are additive; LastCursor always holds the most recent server-supplied
// cursor so an interrupted run can resume.
type Report struct {
	RunID   string `json:"run_id"`
	Catalog string `json:"catalog,omitempty"`

	Pages               int `json:"pages"`
	TitlesUpserted      int `json:"titles_upserted"`
	TitlesFailed        int `json:"titles_failed"`
	EpisodesUpserted    int `json:"episodes_upserted"`
	ExternalIDsUpserted int `json:"external_ids_upserted"`
	GenresUpserted      int `json:"genres_upserted"`
	PeopleUpserted      int `json:"people_upserted"`
	TitleGenreRefs      int `json:"title_genre_refs"`
	TitlePersonRefs     int `json:"title_person_refs"`

	LastCursor string    `json:"last_cursor,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
