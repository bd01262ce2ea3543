// Package scan triggers library rescans one path at a time. Each path waits
// out a countdown, posts a refresh, waits for the server to settle, and then
// reports completion before the next path starts.
package scan
