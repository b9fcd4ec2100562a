package export

import (
	"context"

	"subtrack/internal/core"
)

// Ports for outbound report exporters.
type (
	// ReportWriter pushes a full report snapshot to an external surface.
	// The returned ref identifies where the snapshot landed (a sheet
	// range, a file path) and is only used for logging.
	ReportWriter interface {
		ExportReport(ctx context.Context, report core.Report) (ref string, err error)
	}
)
