package registry

import (
	"strings"

	"embyscout/internal/services/emby"
)

// Storage keys. The v1 keys are authoritative; the legacy keys are read once
// during migration.
const (
	ServerListKey       = "EMBY_SERVER_LIST_v1"
	SiteListKey         = "EMBY_SITE_LIST_v1"
	PanelPositionKey    = "EMBY_PANEL_POS_v1"
	LegacyServerListKey = "EMBY_SERVER_LIST"
	LegacySiteListKey   = "EMBY_SITE_LIST"
)

// ServerConfig describes one Emby-compatible media server.
type ServerConfig struct {
	Name      string   `json:"name" yaml:"name"`
	URL       string   `json:"server" yaml:"url"`
	APIKey    string   `json:"key" yaml:"api_key,omitempty"`
	UseHeader bool     `json:"useHeader" yaml:"use_header"`
	ScanPaths []string `json:"scanPaths,omitempty" yaml:"scan_paths,omitempty"`
	ServerID  string   `json:"serverId,omitempty" yaml:"server_id,omitempty"`
}

// BaseURL returns the server URL without a trailing slash.
func (s ServerConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.URL), "/")
}

// Label is the display name, falling back to the URL.
func (s ServerConfig) Label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return s.BaseURL()
}

// Endpoint converts the server entry into client credentials.
func (s ServerConfig) Endpoint() emby.Endpoint {
	return emby.Endpoint{BaseURL: s.BaseURL(), APIKey: s.APIKey, UseHeader: s.UseHeader}
}

// PathsOrDefault returns the configured scan paths, or fallback when none are set.
func (s ServerConfig) PathsOrDefault(fallback string) []string {
	if len(s.ScanPaths) > 0 {
		return append([]string(nil), s.ScanPaths...)
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = "/"
	}
	return []string{fallback}
}

// SiteConfig binds a web site to one server by list index.
type SiteConfig struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	ServerIndex int    `json:"serverIndex" yaml:"server_index"`
}

// PanelPosition is the last on-screen position of the floating panel.
type PanelPosition struct {
	Top  int `json:"top" yaml:"top"`
	Left int `json:"left" yaml:"left"`
}

// DefaultPosition is used when no position has been stored.
func DefaultPosition() PanelPosition {
	return PanelPosition{Top: 100, Left: 100}
}

// ParseScanPaths splits a comma separated path list, dropping blanks.
func ParseScanPaths(raw string) []string {
	var paths []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}

func normalizeServer(s ServerConfig) ServerConfig {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.ServerID = strings.TrimSpace(s.ServerID)
	var paths []string
	for _, p := range s.ScanPaths {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	s.ScanPaths = paths
	return s
}

func normalizeSite(s SiteConfig) SiteConfig {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	return s
}
