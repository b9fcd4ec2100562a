package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"subtrack/internal/core"
)

// ErrNoReport is returned when no report snapshot has been written yet.
var ErrNoReport = errors.New("no report snapshot")

// SaveReport writes the report snapshot atomically (temp file + rename).
// The snapshot is disposable: losing it only costs a recompute from the
// record store.
func SaveReport(path string, report core.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// LoadReport reads the last saved report snapshot.
func LoadReport(path string) (core.Report, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Report{}, ErrNoReport
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("read report: %w", err)
	}

	var report core.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return core.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}
