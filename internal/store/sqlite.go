package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"subtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the append-only record log in a SQLite table. The id
// column is the primary key and inserts use ON CONFLICT DO NOTHING, which is
// what makes re-ingestion idempotent on this backend.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec core.ChargeRecord) (bool, error) {
	keywords, err := json.Marshal(rec.DetectedKeywords)
	if err != nil {
		return false, fmt.Errorf("marshal keywords: %w", err)
	}

	var amount sql.NullFloat64
	if rec.Amount != nil {
		amount = sql.NullFloat64{Float64: *rec.Amount, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO charge_records
			(id, merchant, amount, currency, charge_date, status,
			 subject, source_email, detected_keywords, source,
			 frequency_override, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Merchant, amount, rec.Currency, rec.Date, string(rec.Status),
		rec.Subject, rec.SourceEmail, string(keywords), rec.Source,
		rec.FrequencyOverride, rec.ParsedAt)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]core.ChargeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant, amount, currency, charge_date, status,
		       subject, source_email, detected_keywords, source,
		       frequency_override, parsed_at
		FROM charge_records
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []core.ChargeRecord{}
	for rows.Next() {
		var (
			rec      core.ChargeRecord
			amount   sql.NullFloat64
			status   string
			keywords string
		)
		if err := rows.Scan(&rec.ID, &rec.Merchant, &amount, &rec.Currency,
			&rec.Date, &status, &rec.Subject, &rec.SourceEmail, &keywords,
			&rec.Source, &rec.FrequencyOverride, &rec.ParsedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if amount.Valid {
			v := amount.Float64
			rec.Amount = &v
		}
		rec.Status = core.Status(status)
		if keywords != "" {
			// Undecodable keyword payloads are provenance only; drop them.
			_ = json.Unmarshal([]byte(keywords), &rec.DetectedKeywords)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM charge_records`)
	if err != nil {
		return nil, fmt.Errorf("query record ids: %w", err)
	}
	defer rows.Close()

	ids := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record ids: %w", err)
	}
	return ids, nil
}
