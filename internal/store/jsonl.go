package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"subtrack/internal/core"
)

// JSONLStore appends records to a line-delimited JSON file, one record per
// line. Lines that fail to decode are skipped on read: ingestion noise must
// not block reporting on the remaining valid data.
type JSONLStore struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{}
}

func OpenJSONL(path string) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	s := &JSONLStore{path: path, ids: make(map[string]struct{})}
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
	return s, nil
}

func (s *JSONLStore) Append(ctx context.Context, rec core.ChargeRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[rec.ID]; exists {
		return false, nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return false, fmt.Errorf("append record: %w", err)
	}
	s.ids[rec.ID] = struct{}{}

	slog.DebugContext(ctx, "Record appended",
		"id", rec.ID, "merchant", rec.Merchant, "status", string(rec.Status))
	return true, nil
}

func (s *JSONLStore) List(ctx context.Context) ([]core.ChargeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *JSONLStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *JSONLStore) Close() error { return nil }

func (s *JSONLStore) readAll() ([]core.ChargeRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []core.ChargeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	records := []core.ChargeRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec core.ChargeRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
			continue // malformed line, skip
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("scan record file: %w", err)
	}
	return records, nil
}
