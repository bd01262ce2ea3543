package tmdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"embyscout/internal/services"
)

// Match is the outcome of resolving a title to a TMDB entry.
type Match struct {
	ID        int64
	MediaType string
	Title     string
}

// ResolveType asks the movie endpoint first and falls back to tv when TMDB
// reports the id as missing. Both missing yields MediaUnknown.
func ResolveType(ctx context.Context, s Searcher, id int64) (string, error) {
	if _, err := s.GetMovieDetails(ctx, id); err == nil {
		return MediaMovie, nil
	} else if !errors.Is(err, services.ErrNotFound) {
		return "", err
	}
	if _, err := s.GetTVDetails(ctx, id); err == nil {
		return MediaTV, nil
	} else if !errors.Is(err, services.ErrNotFound) {
		return "", err
	}
	return MediaUnknown, nil
}

// Lookup resolves title to a TMDB id and media type.
func Lookup(ctx context.Context, s Searcher, title string) (Match, bool, error) {
	resp, err := s.SearchMulti(ctx, title)
	if err != nil {
		return Match{}, false, err
	}
	if resp == nil || len(resp.Results) == 0 {
		return Match{}, false, nil
	}
	first := resp.Results[0]
	mediaType, err := ResolveType(ctx, s, first.ID)
	if err != nil {
		return Match{}, false, err
	}
	return Match{ID: first.ID, MediaType: mediaType, Title: first.DisplayTitle()}, true, nil
}

// HDHiveURL builds the HDHive page for a TMDB entry. Unknown media types have
// no page and return "".
func HDHiveURL(base string, m Match) string {
	if m.ID <= 0 || (m.MediaType != MediaMovie && m.MediaType != MediaTV) {
		return ""
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "https://hdhive.com"
	}
	return fmt.Sprintf("%s/tmdb/%s/%d", base, m.MediaType, m.ID)
}
