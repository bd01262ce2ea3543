package library

import (
	"errors"

	"embyscout/internal/registry"
)

// Status is the label attached to a checked title.
type Status string

const (
	StatusChecking      Status = "checking"
	StatusInLibrary     Status = "in library"
	StatusMissing       Status = "not in library"
	StatusNotConfigured Status = "not configured"
	StatusUnbound       Status = "unbound"
	StatusFailed        Status = "detection failed"
	StatusError         Status = "error"
)

// Resolved reports whether s is a final answer from a media server.
func (s Status) Resolved() bool {
	return s == StatusInLibrary || s == StatusMissing
}

// statusForResolveError maps site resolution failures onto labels.
func statusForResolveError(err error) Status {
	switch {
	case errors.Is(err, registry.ErrNotConfigured):
		return StatusNotConfigured
	case errors.Is(err, registry.ErrUnbound):
		return StatusUnbound
	default:
		return StatusError
	}
}
