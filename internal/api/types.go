package api

import "time"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	StartedAt    string `json:"startedAt"`
	StoreDriver  string `json:"storeDriver"`
	LockFilePath string `json:"lockFilePath"`
	Servers      int    `json:"servers"`
	Sites        int    `json:"sites"`
	ActiveScans  int    `json:"activeScans"`
	TMDBEnabled  bool   `json:"tmdbEnabled"`
}

// SearchHit is one search result.
type SearchHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Year     int    `json:"year,omitempty"`
	OpenURL  string `json:"openUrl"`
	ImageURL string `json:"imageUrl,omitempty"`
	Episode  string `json:"episode,omitempty"`
}

// SearchBlock is the result of one server.
type SearchBlock struct {
	ServerIndex int         `json:"serverIndex"`
	Server      string      `json:"server"`
	State       string      `json:"state"`
	Hits        []SearchHit `json:"hits,omitempty"`
	ScanOffered bool        `json:"scanOffered,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// SearchResponse wraps a completed search.
type SearchResponse struct {
	Keyword string        `json:"keyword"`
	Blocks  []SearchBlock `json:"blocks"`
}

// CheckResponse is the outcome of an in-library check.
type CheckResponse struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	Site   string `json:"site,omitempty"`
	Server string `json:"server,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ScanRequest starts a rescan chain. Server is a list index.
type ScanRequest struct {
	Server  int      `json:"server"`
	Paths   []string `json:"paths,omitempty"`
	Keyword string   `json:"keyword,omitempty"`
}

// ScanProgress mirrors the latest countdown event.
type ScanProgress struct {
	Path      string `json:"path"`
	PathIndex int    `json:"pathIndex"`
	PathCount int    `json:"pathCount"`
	Phase     string `json:"phase"`
	Remaining int    `json:"remainingSeconds"`
	Message   string `json:"message"`
}

// ScanJob describes a background rescan.
type ScanJob struct {
	ID        string        `json:"id"`
	Server    string        `json:"server"`
	Paths     []string      `json:"paths"`
	Keyword   string        `json:"keyword,omitempty"`
	State     string        `json:"state"`
	Completed []string      `json:"completedPaths"`
	Progress  *ScanProgress `json:"progress,omitempty"`
	Error     string        `json:"error,omitempty"`
	// Research holds the search re-run after each completed path.
	Research  *SearchResponse `json:"research,omitempty"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// Server is a server entry as exposed over the API.
type Server struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	HasAPIKey bool     `json:"hasApiKey"`
	UseHeader bool     `json:"useHeader"`
	ScanPaths []string `json:"scanPaths"`
	ServerID  string   `json:"serverId,omitempty"`
}

// ServerInput creates or replaces a server entry. An empty APIKey on update
// keeps the stored key.
type ServerInput struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	APIKey    string   `json:"apiKey"`
	UseHeader bool     `json:"useHeader"`
	ScanPaths []string `json:"scanPaths"`
}

// ServerListResponse wraps the server list.
type ServerListResponse struct {
	Servers []Server `json:"servers"`
}

// ServerTestResponse reports reachability.
type ServerTestResponse struct {
	Index  int    `json:"index"`
	Online bool   `json:"online"`
	Error  string `json:"error,omitempty"`
}

// Site is a site entry with its binding resolved.
type Site struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ServerIndex int    `json:"serverIndex"`
	// Server is the bound server name, or "unbound".
	Server string `json:"server"`
}

// SiteInput creates or replaces a site entry.
type SiteInput struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ServerIndex int    `json:"serverIndex"`
}

// SiteListResponse wraps the site list.
type SiteListResponse struct {
	Sites []Site `json:"sites"`
}

// Position is the stored panel position.
type Position struct {
	Top  int `json:"top"`
	Left int `json:"left"`
}

// PageScanRequest asks the daemon to scan a page once.
type PageScanRequest struct {
	URL string `json:"url"`
}

// PageElement is an annotated page element.
type PageElement struct {
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Raw       string `json:"raw"`
	Status    string `json:"status"`
	Server    string `json:"server,omitempty"`
	HDHiveURL string `json:"hdhiveUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PageScanResponse wraps the annotated elements.
type PageScanResponse struct {
	URL      string        `json:"url"`
	Elements []PageElement `json:"elements"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// FormatTime renders t for API payloads.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
