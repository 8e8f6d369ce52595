package sync

import "time"

// Event types broadcast over the TCP/WebSocket feed while a sync runs.
const (
	EventPage        = "sync.page"
	EventTitleFailed = "sync.title.failed"
	EventReport      = "sync.report"
	EventTopShows    = "sync.top_shows"
	EventResume      = "resume.update"
)

// PageEvent is emitted after each persisted page of a full-catalog sync.
type PageEvent struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	Catalog    string    `json:"catalog"`
	Page       int       `json:"page"`
	Titles     int       `json:"titles"`
	Failed     int       `json:"failed"`
	NextCursor string    `json:"next_cursor,omitempty"`
	At         time.Time `json:"at"`
}

// TitleFailedEvent is emitted when one title-tree rolls back.
type TitleFailedEvent struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	Catalog string    `json:"catalog,omitempty"`
	MonID   string    `json:"mon_id"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// ReportEvent carries the final counters of a finished run.
type ReportEvent struct {
	Type   string    `json:"type"`
	RunID  string    `json:"run_id"`
	Report any       `json:"report"`
	At     time.Time `json:"at"`
}

// TopShowsEvent is emitted after a top-shows reconciliation.
type TopShowsEvent struct {
	Type    string    `json:"type"`
	Service string    `json:"service"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}
