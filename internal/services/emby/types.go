package emby

import "strings"

// Item types returned by /emby/Items that embyscout cares about.
const (
	TypeMovie   = "Movie"
	TypeSeries  = "Series"
	TypeEpisode = "Episode"
)

// Series status values reported by /emby/Shows/{id}.
const (
	StatusContinuing = "Continuing"
	StatusEnded      = "Ended"
)

// Endpoint identifies one media server and its credentials.
type Endpoint struct {
	BaseURL   string
	APIKey    string
	UseHeader bool
}

// Base returns the base URL without a trailing slash.
func (e Endpoint) Base() string {
	return strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
}

// Item is the subset of an Emby item used for matching and display.
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	OriginalTitle     string            `json:"OriginalTitle,omitempty"`
	Type              string            `json:"Type"`
	ProductionYear    int               `json:"ProductionYear,omitempty"`
	ImageTags         map[string]string `json:"ImageTags,omitempty"`
	ParentIndexNumber int               `json:"ParentIndexNumber,omitempty"`
	IndexNumber       int               `json:"IndexNumber,omitempty"`
	PremiereDate      string            `json:"PremiereDate,omitempty"`
	SeriesName        string            `json:"SeriesName,omitempty"`
}

// PrimaryImageTag returns the primary image tag, if any.
func (i Item) PrimaryImageTag() string {
	if i.ImageTags == nil {
		return ""
	}
	return i.ImageTags["Primary"]
}

// ItemsResponse is the envelope of list endpoints.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// SystemInfo is the subset of /emby/System/Info used by embyscout.
type SystemInfo struct {
	ID         string `json:"Id"`
	ServerName string `json:"ServerName,omitempty"`
	Version    string `json:"Version,omitempty"`
}

// Show is the subset of /emby/Shows/{id} used for airing status.
type Show struct {
	ID     string `json:"Id"`
	Name   string `json:"Name"`
	Status string `json:"Status"`
}

// Continuing reports whether the show is still airing. A missing status is
// treated as ended.
func (s Show) Continuing() bool {
	return s.Status == StatusContinuing
}
