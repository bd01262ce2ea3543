// Package tmdb wraps the handful of The Movie Database endpoints used to turn
// a page title into a TMDB id and media type: multi search plus the movie and
// tv detail lookups. TMDB signals a missing resource with status_code 34,
// which the client surfaces as services.ErrNotFound.
package tmdb
