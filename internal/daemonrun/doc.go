// Package daemonrun hosts the process-level runtime for embyscoutd: signal
// handling, logger setup, the PID file, and daemon lifecycle.
package daemonrun
