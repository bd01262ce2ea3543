package search

import (
	"context"
	"errors"
	"fmt"

	"embyscout/internal/services"
	"embyscout/internal/services/emby"
)

// Episode summary texts.
const (
	EpisodeNone        = "ended / no episode info"
	EpisodeUnavailable = "episode info unavailable"
	EpisodeUnparsable  = "episode info unreadable"
)

// episodeSummary describes the latest episode of seriesID. A failed show
// lookup drops the airing status but keeps the episode numbers.
func episodeSummary(ctx context.Context, client MediaClient, ep emby.Endpoint, seriesID string) string {
	latest, ok, err := client.LatestEpisode(ctx, ep, seriesID)
	switch {
	case err != nil && isDecodeError(err):
		return EpisodeUnparsable
	case err != nil:
		return EpisodeUnavailable
	case !ok:
		return EpisodeNone
	}
	progress := fmt.Sprintf("up to season %s episode %s", ordinal(latest.ParentIndexNumber), ordinal(latest.IndexNumber))

	show, err := client.Show(ctx, ep, seriesID)
	if err != nil || show == nil {
		return progress
	}
	status := "ended"
	if show.Continuing() {
		status = "continuing"
	}
	return status + " · " + progress
}

func ordinal(n int) string {
	if n <= 0 {
		return "?"
	}
	return fmt.Sprint(n)
}

func isDecodeError(err error) bool {
	return errors.Is(err, services.ErrExternalService) && errors.Is(err, emby.ErrDecode)
}
