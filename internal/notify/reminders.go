package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
)

// ReminderDays are the renewal distances, in days, that trigger a reminder.
var ReminderDays = []int{3, 2, 1}

// Sender is the minimal message delivery surface reminders need.
type Sender interface {
	Send(text string) error
}

// Reminders fires renewal reminders with on-disk deduplication, so a
// daily run never messages the same (merchant, distance) pair twice.
type Reminders struct {
	SentPath string
	Logger   *log.Logger
	Now      func() time.Time
}

// NewReminders builds a reminder engine persisting dedup state at sentPath.
func NewReminders(sentPath string, logger *log.Logger) *Reminders {
	return &Reminders{
		SentPath: sentPath,
		Logger:   logger.WithComponent(log.ComponentNotify),
		Now:      time.Now,
	}
}

// Fire sends a reminder for every upcoming renewal that is exactly 3, 2
// or 1 days away and not yet alerted. Returns the number sent.
func (r *Reminders) Fire(report *core.Report, sender Sender) (int, error) {
	sent := r.loadSent()
	today := r.Now().Format(core.DateLayout)

	count := 0
	for _, renewal := range report.UpcomingRenewals {
		if !reminderDue(renewal.DaysUntil) {
			continue
		}
		key := fmt.Sprintf("%s_%s_%d", renewal.RenewalDate, renewal.Merchant, renewal.DaysUntil)
		if _, ok := sent[key]; ok {
			continue
		}

		if err := sender.Send(ReminderMessage(renewal)); err != nil {
			r.Logger.Warn("reminder send failed",
				log.FieldMerchant, renewal.Merchant,
				log.FieldError, err.Error())
			continue
		}

		sent[key] = today
		count++
		r.Logger.Info("reminder sent",
			log.FieldMerchant, renewal.Merchant,
			"days_until", renewal.DaysUntil)
	}

	if count > 0 {
		if err := r.saveSent(sent); err != nil {
			return count, err
		}
	}
	return count, nil
}

func reminderDue(daysUntil int) bool {
	for _, d := range ReminderDays {
		if daysUntil == d {
			return true
		}
	}
	return false
}

func (r *Reminders) loadSent() map[string]string {
	sent := make(map[string]string)
	data, err := os.ReadFile(r.SentPath)
	if err != nil {
		return sent
	}
	if err := json.Unmarshal(data, &sent); err != nil {
		return make(map[string]string)
	}
	return sent
}

func (r *Reminders) saveSent(sent map[string]string) error {
	data, err := json.MarshalIndent(sent, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sent alerts: %w", err)
	}
	if err := os.WriteFile(r.SentPath, data, 0644); err != nil {
		return fmt.Errorf("write sent alerts: %w", err)
	}
	return nil
}
