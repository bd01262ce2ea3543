// Package config loads, normalizes, and validates embyscout configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment overrides such as TMDB_API_KEY. The Config type centralizes
// every knob the CLI and daemon need: data and log directories, the key-value
// store backend, HTTP timeouts for media-server calls, scan countdown timing,
// and page watching limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
