package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtrack/internal/core"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

func testRecord(id, merchant string) core.ChargeRecord {
	amount := 9.99
	return core.ChargeRecord{
		ID:       id,
		Merchant: merchant,
		Amount:   &amount,
		Currency: "USD",
		Date:     "2025-06-01",
		Status:   core.StatusActive,
	}
}

func TestJSONLAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.jsonl")
	s, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		written, err := s.Append(ctx, testRecord(id, "Netflix"))
		if err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
		if !written {
			t.Fatalf("Append(%s) reported duplicate on first write", id)
		}
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Insertion order preserved.
	if records[0].ID != "a" || records[2].ID != "c" {
		t.Fatalf("order broken: %s..%s", records[0].ID, records[2].ID)
	}
}

func TestJSONLAppendIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.jsonl")
	s, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}

	ctx := context.Background()
	if _, err := s.Append(ctx, testRecord("dup", "Spotify")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	written, err := s.Append(ctx, testRecord("dup", "Spotify"))
	if err != nil {
		t.Fatalf("re-Append: %v", err)
	}
	if written {
		t.Fatal("appending a known id must be a no-op")
	}

	records, _ := s.List(ctx)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	// Idempotence survives reopening (ids reloaded from disk).
	s2, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	written, err = s2.Append(ctx, testRecord("dup", "Spotify"))
	if err != nil || written {
		t.Fatalf("reopened store re-appended: written=%v err=%v", written, err)
	}
}

func TestJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.jsonl")
	content := `{"id":"ok1","merchant":"Netflix","currency":"USD","date":"2025-06-01","status":"active"}
not json at all
{"merchant":"missing id"}

{"id":"ok2","merchant":"Spotify","currency":"USD","date":"2025-06-02","status":"active"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}
	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (malformed lines skipped)", len(records))
	}
}

func TestJSONLMissingFileIsEmpty(t *testing.T) {
	s, err := OpenJSONL(filepath.Join(t.TempDir(), "never-written.jsonl"))
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}
	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestReportSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if _, err := LoadReport(path); err != ErrNoReport {
		t.Fatalf("LoadReport on missing file = %v, want ErrNoReport", err)
	}

	report := core.EmptyReport(mustTime(t, "2025-06-30T08:00:00Z"))
	report.TotalRecords = 7
	if err := SaveReport(path, report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if loaded.TotalRecords != 7 {
		t.Fatalf("total_records = %d, want 7", loaded.TotalRecords)
	}
}
