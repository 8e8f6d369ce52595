package models

import "strings"

type TitleKind string

const (
	KindMovie  TitleKind = "MOVIE"
	KindSeries TitleKind = "SERIES"
)

type CreditRole string

const (
	RoleCast     CreditRole = "CAST"
	RoleDirector CreditRole = "DIRECTOR"
	RoleWriter   CreditRole = "WRITER"
)

type PopularityType string

const (
	TopShows PopularityType = "TOP_SHOWS"
)

// StreamingService identifies a provider by the id the catalog API uses
// ("netflix", "prime", ...).
type StreamingService string

const (
	Netflix StreamingService = "netflix"
	Prime   StreamingService = "prime"
	Disney  StreamingService = "disney"
	Apple   StreamingService = "apple"
	HBO     StreamingService = "hbo"
	Peacock StreamingService = "peacock"
	Hulu    StreamingService = "hulu"
)

var knownServices = []StreamingService{Netflix, Prime, Disney, Apple, HBO, Peacock, Hulu}

// ParseStreamingService resolves a service id case-insensitively. Returns
// false for services we have no deep-link template for.
func ParseStreamingService(id string) (StreamingService, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range knownServices {
		if string(s) == id {
			return s, true
		}
	}
	return "", false
}

// LaunchURL builds a deep link into the provider's app/site for a
// provider-native id. This is a fixed per-service template table; the
// caller is responsible for actually launching it.
func (s StreamingService) LaunchURL(externalID string) string {
	switch s {
	case Netflix:
		return "https://www.netflix.com/watch/" + externalID
	case Prime:
		return "https://www.primevideo.com/detail/" + externalID
	case Disney:
		return "https://www.disneyplus.com/video/" + externalID
	case Apple:
		return "https://tv.apple.com/us/movie/" + externalID
	case HBO:
		return "https://play.hbomax.com/page/" + externalID
	case Peacock:
		return "https://www.peacocktv.com/watch/playback/" + externalID
	case Hulu:
		return "https://www.hulu.com/watch/" + externalID
	}
	return ""
}
