// Package store persists charge records. The store is append-only: records
// are immutable once written and identified by a stable content-derived id,
// so appending an already-known id is an idempotent no-op rather than a
// duplicate or an error.
//
// Two backends exist behind one interface: a line-delimited JSON file (the
// reference format the original data files use) and SQLite.
package store

import (
	"context"
	"fmt"

	"subtrack/internal/core"
)

// Backend names accepted by Open.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// RecordStore is the durable, append-only collection of charge and
// cancellation observations. List returns the full set in insertion order;
// analysis loads the whole snapshot before computing anything.
type RecordStore interface {
	// Append writes one record unless its id is already present.
	// Returns true when the record was actually written.
	Append(ctx context.Context, rec core.ChargeRecord) (bool, error)
	// List returns all records in insertion order, skipping entries the
	// backend cannot decode.
	List(ctx context.Context) ([]core.ChargeRecord, error)
	// IDs returns the set of known record ids, used by ingestion to
	// resume a scan without re-fetching parsed messages.
	IDs(ctx context.Context) (map[string]struct{}, error)
	Close() error
}

// Open selects a backend by name. An empty name means JSONL, the reference
// format.
func Open(backend, path string) (RecordStore, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendJSONL, "":
		return OpenJSONL(path)
	default:
		return nil, fmt.Errorf("unknown record store backend %q", backend)
	}
}
