package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// DateLayout is the calendar-date format used everywhere in the system.
// Charges have day granularity only; there are no timestamps on records.
const DateLayout = "2006-01-02"

type (
	// Status marks a record as an active charge or a cancellation signal.
	// Any value other than "cancelled" counts as active.
	Status string

	// ChargeRecord is one observed transaction signal extracted from an
	// email (or entered manually). Records are immutable once written:
	// the store is append-only and a record's identity is fixed at
	// creation. Correcting data means appending a new record.
	ChargeRecord struct {
		ID       string   `json:"id"`
		Merchant string   `json:"merchant"`
		Amount   *float64 `json:"amount"`
		Currency string   `json:"currency"`
		Date     string   `json:"date"` // YYYY-MM-DD
		Status   Status   `json:"status"`

		// Provenance. Carried through storage untouched; the analysis
		// engine never reads these.
		Subject           string   `json:"subject,omitempty"`
		SourceEmail       string   `json:"source_email,omitempty"`
		DetectedKeywords  []string `json:"detected_keywords,omitempty"`
		Source            string   `json:"source,omitempty"`
		FrequencyOverride string   `json:"frequency_override,omitempty"`
		ParsedAt          string   `json:"parsed_at,omitempty"`
	}
)

var (
	ErrEmptyMerchant = errors.New("empty merchant name")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Cancelled reports whether the record is a cancellation signal.
func (r ChargeRecord) Cancelled() bool {
	return r.Status == StatusCancelled
}

// ChargeDate parses the record's calendar date. ok is false when the date
// is missing or malformed; callers skip such records rather than fail.
func (r ChargeRecord) ChargeDate() (time.Time, bool) {
	t, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate checks the fields a manually entered record must carry.
// Ingested records are never validated this way: malformed mailbox data is
// skipped at the point of use, not rejected up front.
func (r ChargeRecord) Validate() error {
	if strings.TrimSpace(r.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(r.Merchant) > 200 {
		return errors.New("merchant name too long (max 200 characters)")
	}
	if r.Amount != nil && *r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// RecordID derives the stable identifier for an ingested record from the
// mailbox UID and the From header. Re-ingesting the same message always
// produces the same id, which is what makes ingestion idempotent.
func RecordID(uid, from string) string {
	sum := sha256.Sum256([]byte(uid + ":" + from))
	return hex.EncodeToString(sum[:])[:16]
}

// ManualRecordID derives the stable identifier for a manual entry.
func ManualRecordID(merchant string, amount float64, date string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("manual:%s:%v:%s", merchant, amount, date)))
	return hex.EncodeToString(sum[:])[:16]
}
