// Package daemonctl starts, stops, and queries embyscoutd from the CLI. The
// daemon is reached over its HTTP API; process control goes through the PID
// file the daemon writes in the data directory.
package daemonctl
