// Package services defines shared utilities consumed by the media-server and
// metadata integrations.
//
// Key responsibilities:
//   - Context helpers that stamp server names, scan paths, job IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation vs configuration vs upstream) without string
//     matching.
//
// Integration clients live in subpackages (emby, tmdb); use these helpers when
// wiring them so error handling and observability stay uniform.
package services
