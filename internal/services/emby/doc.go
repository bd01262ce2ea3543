// Package emby is a small client for the Emby-compatible HTTP endpoints
// embyscout relies on: system info, item search, series episodes, show
// details, and library refresh.
//
// Every call takes an Endpoint describing the server and how to authenticate
// (X-Emby-Token header or api_key query parameter). The client performs no
// retries; callers decide how a failure is surfaced.
package emby
