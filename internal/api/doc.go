// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates internal search, check, scan, and registry models into
// transport-friendly DTOs that panel front-ends can render without coupling
// to internal types.
//
// DTOs use camelCase JSON tags for JavaScript consumers. Errors are flattened
// to strings, and server API keys are never echoed back; a boolean reports
// whether one is set.
package api
