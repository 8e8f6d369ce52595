package movienight

// DTOs shaped after the streaming-availability API's JSON. Kept flexible:
// optional fields stay pointers or zero values rather than failing decode.

type TitleDTO struct {
	ID            string                          `json:"id"`
	ShowType      string                          `json:"showType"` // "movie" | "series"
	ImdbID        string                          `json:"imdbId,omitempty"`
	TmdbID        string                          `json:"tmdbId,omitempty"`
	Title         string                          `json:"title"`
	OriginalTitle string                          `json:"originalTitle,omitempty"`
	Overview      string                          `json:"overview,omitempty"`
	ReleaseYear   int                             `json:"releaseYear,omitempty"`
	Rating        int                             `json:"rating,omitempty"` // 0..100
	Runtime       int                             `json:"runtime,omitempty"`
	Genres        []GenreDTO                      `json:"genres,omitempty"`
	Directors     []string                        `json:"directors,omitempty"`
	Cast          []string                        `json:"cast,omitempty"`
	ImageSet      *ImageSetDTO                    `json:"imageSet,omitempty"`
	StreamingOpts map[string][]StreamingOptionDTO `json:"streamingOptions,omitempty"` // keyed by country code
}

type GenreDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ImageSetDTO struct {
	VerticalPoster     map[string]string `json:"verticalPoster,omitempty"` // keys like "w240", "w360"
	HorizontalPoster   map[string]string `json:"horizontalPoster,omitempty"`
	VerticalBackdrop   map[string]string `json:"verticalBackdrop,omitempty"`
	HorizontalBackdrop map[string]string `json:"horizontalBackdrop,omitempty"`
}

type StreamingOptionDTO struct {
	Service        StreamingServiceDTO `json:"service"`
	Type           string              `json:"type"` // subscription/rent/buy/addon
	Link           string              `json:"link,omitempty"`
	VideoLink      string              `json:"videoLink,omitempty"`
	Quality        string              `json:"quality,omitempty"`
	ExpiresSoon    bool                `json:"expiresSoon,omitempty"`
	ExpiresOn      int64               `json:"expiresOn,omitempty"`
	AvailableSince int64               `json:"availableSince,omitempty"`
	Price          *PriceDTO           `json:"price,omitempty"`
}

type StreamingServiceDTO struct {
	ID       string `json:"id"`   // "netflix"
	Name     string `json:"name"` // "Netflix"
	HomePage string `json:"homePage,omitempty"`
}

type PriceDTO struct {
	Amount    string `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Formatted string `json:"formatted,omitempty"`
}

type EpisodeDTO struct {
	ID            string       `json:"id"`
	SeasonNumber  int          `json:"seasonNumber,omitempty"`
	EpisodeNumber int          `json:"episodeNumber,omitempty"`
	Name          string       `json:"name,omitempty"`
	Synopsis      string       `json:"synopsis,omitempty"`
	RuntimeMin    int          `json:"runtime,omitempty"`
	AirDate       string       `json:"airDate,omitempty"`
	ImageSet      *ImageSetDTO `json:"imageSet,omitempty"`
	UpdatedAt     int64        `json:"updatedAt,omitempty"`
}

// SearchPage is one page of the paginated search endpoint plus the cursor
// needed to fetch the next one.
type SearchPage struct {
	Shows      []TitleDTO `json:"shows"`
	HasMore    bool       `json:"hasMore"`
	NextCursor string     `json:"nextCursor,omitempty"`
}
