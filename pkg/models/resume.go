package models

// ResumeEntry is one scraped "continue watching" row from a provider,
// deduplicated by a content hash of its meaningful fields. Resolution links
// it to a local title/episode after the fact (best effort).
type ResumeEntry struct {
	ID                int64            `json:"id"`
	Service           StreamingService `json:"service"`
	ServiceItemID     string           `json:"service_item_id,omitempty"`
	TitleText         string           `json:"title_text"`
	SeasonNumber      int              `json:"season_number,omitempty"`
	EpisodeNumber     int              `json:"episode_number,omitempty"`
	ResumeIndex       int              `json:"resume_index"`
	ResolvedTitleID   *int64           `json:"resolved_title_id,omitempty"`
	ResolvedEpisodeID *int64           `json:"resolved_episode_id,omitempty"`
	HashKey           string           `json:"-"`
}

// ResumeFeedItem is the row shape served to the UI: the raw entry plus the
// resolved title's display fields when resolution succeeded.
type ResumeFeedItem struct {
	Entry              ResumeEntry `json:"entry"`
	ResolvedTitleName  string      `json:"resolved_title_name,omitempty"`
	ResolvedTitleImage string      `json:"resolved_title_image,omitempty"`
}
