// Package memory is an in-process ReportWriter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"subtrack/internal/core"
	ports "subtrack/internal/export"
)

type Store struct {
	mu        sync.Mutex
	snapshots []core.Report
}

var _ ports.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportReport keeps the snapshot and returns a synthetic ref.
func (s *Store) ExportReport(_ context.Context, report core.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, report)
	return ports.Ref("mem", len(ports.MerchantRows(report))), nil
}

// Snapshots returns everything exported so far, oldest first.
func (s *Store) Snapshots() []core.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Report, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}
