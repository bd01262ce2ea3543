package notifications

import (
	"context"
	"errors"

	"embyscout/internal/scan"
)

// ScanNotifier adapts a Service to the scanner's completion hook.
type ScanNotifier struct {
	Service Service
}

// ScanFinished publishes a completed or failed scan event.
func (s ScanNotifier) ScanFinished(ctx context.Context, server string, paths []string, err error) error {
	if s.Service == nil {
		return nil
	}
	if err != nil {
		path := ""
		var pe *scan.PathError
		if errors.As(err, &pe) {
			path = pe.Path
		}
		return s.Service.Publish(ctx, EventScanFailed, Payload{"server": server, "path": path, "error": err.Error()})
	}
	return s.Service.Publish(ctx, EventScanCompleted, Payload{"server": server, "paths": paths})
}
