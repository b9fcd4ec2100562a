// Package ingest pulls subscription-related emails from an IMAP mailbox,
// filters them down to real recurring charges, and appends the surviving
// records to the store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/store"
)

// Progress is invoked after each processed message. rec is nil when the
// message was filtered out.
type Progress func(current, total int, rec *core.ChargeRecord)

// Scanner runs one mailbox scan end to end.
type Scanner struct {
	Store        store.RecordStore
	Logger       *log.Logger
	LookbackDays int
	Now          func() time.Time
}

// NewScanner returns a scanner with the default lookback window.
func NewScanner(recordStore store.RecordStore, logger *log.Logger, lookbackDays int) *Scanner {
	if lookbackDays <= 0 {
		lookbackDays = 60
	}
	return &Scanner{
		Store:        recordStore,
		Logger:       logger.WithComponent(log.ComponentIngest),
		LookbackDays: lookbackDays,
		Now:          time.Now,
	}
}

// Scan searches the mailbox, parses candidate emails and stores new
// records. Already-stored ids are counted as progress but not re-parsed
// into duplicates. Returns the newly stored records.
func (s *Scanner) Scan(ctx context.Context, mbox Mailbox, progress Progress) ([]core.ChargeRecord, error) {
	now := s.Now()
	since := now.AddDate(0, 0, -s.LookbackDays)

	ids, err := mbox.SearchSubscriptions(since)
	if err != nil {
		s.Logger.WarnContext(ctx, "category search failed, falling back to keyword search",
			log.FieldError, err.Error())
		ids = nil
	} else if len(ids) > 0 {
		s.Logger.InfoContext(ctx, "subscription category search complete",
			log.FieldCount, len(ids))
	}

	if len(ids) == 0 {
		seen := make(map[uint32]struct{})
		for _, kw := range SearchKeywords {
			found, err := mbox.SearchKeyword(since, kw)
			if err != nil {
				s.Logger.WarnContext(ctx, "keyword search failed",
					"keyword", kw, log.FieldError, err.Error())
				continue
			}
			for _, id := range found {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
		s.Logger.InfoContext(ctx, "keyword search complete", log.FieldCount, len(ids))
	}

	known, err := s.Store.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stored ids: %w", err)
	}
	s.Logger.InfoContext(ctx, "resuming scan", "already_stored", len(known))

	var newRecords []core.ChargeRecord
	current := 0
	total := len(ids)

	err = mbox.Fetch(ids, func(id uint32, raw []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		current++

		rec, err := ParseMessage(raw, fmt.Sprintf("%d", id), now)
		if err != nil {
			s.Logger.WarnContext(ctx, "failed to parse email",
				"uid", id, log.FieldError, err.Error())
			if progress != nil {
				progress(current, total, nil)
			}
			return nil
		}
		if rec == nil {
			if progress != nil {
				progress(current, total, nil)
			}
			return nil
		}

		if _, ok := known[rec.ID]; ok {
			if progress != nil {
				progress(current, total, rec)
			}
			return nil
		}

		written, err := s.Store.Append(ctx, *rec)
		if err != nil {
			return fmt.Errorf("storing record %s: %w", rec.ID, err)
		}
		if written {
			known[rec.ID] = struct{}{}
			newRecords = append(newRecords, *rec)
			amount := 0.0
			if rec.Amount != nil {
				amount = *rec.Amount
			}
			s.Logger.InfoContext(ctx, "stored subscription email",
				log.FieldMerchant, rec.Merchant,
				log.FieldCurrency, rec.Currency,
				log.FieldAmount, amount,
				log.FieldRecordID, rec.ID)
		}
		if progress != nil {
			progress(current, total, rec)
		}
		return nil
	})
	if err != nil {
		return newRecords, err
	}

	s.Logger.InfoContext(ctx, "scan complete",
		"processed", current, "new_records", len(newRecords))
	return newRecords, nil
}
