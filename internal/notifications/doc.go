// Package notifications delivers scan and library events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Individual events can be muted through the
// notifications section of the config.
package notifications
