package notify

import (
	"fmt"
	"sort"
	"strings"

	"subtrack/internal/core"
)

// DigestMessage renders the post-scan Telegram digest.
func DigestMessage(report *core.Report, newRecords int, budgetUSD float64) string {
	lines := []string{"*SubTrack — Weekly Digest* 📊\n"}

	plural := "s"
	if report.MerchantCount == 1 {
		plural = ""
	}
	lines = append(lines, fmt.Sprintf("👀 *%d* active subscription%s", report.MerchantCount, plural))

	if len(report.SpendByCurrency) > 0 {
		parts := make([]string, 0, len(report.SpendByCurrency))
		// USD first, then the rest in stable alphabetical order
		if usd, ok := report.SpendByCurrency["USD"]; ok {
			parts = append(parts, formatMoney("USD", usd))
		}
		for _, cur := range sortedCurrencies(report.SpendByCurrency) {
			if cur == "USD" {
				continue
			}
			parts = append(parts, formatMoney(cur, report.SpendByCurrency[cur]))
		}
		lines = append(lines, "💳 Monthly: *"+strings.Join(parts, " · ")+"*")
	}

	if report.PotentialMonthlySavings > 0 {
		lines = append(lines, fmt.Sprintf("✨ Potential savings: *$%.2f/mo* (duplicate services)", report.PotentialMonthlySavings))
	}

	usdSpend := report.SpendByCurrency["USD"]
	if budgetUSD > 0 && usdSpend > budgetUSD {
		over := usdSpend - budgetUSD
		lines = append(lines, fmt.Sprintf("\n⚠️ *Over budget!* $%.2f/mo vs $%.2f limit ($%.2f over)", usdSpend, budgetUSD, over))
	}

	if newRecords > 0 {
		plural := "s"
		if newRecords == 1 {
			plural = ""
		}
		lines = append(lines, fmt.Sprintf("\n🆕 *%d new* email%s detected", newRecords, plural))
	}

	return strings.Join(lines, "\n")
}

// ReminderMessage renders one renewal reminder.
func ReminderMessage(r core.UpcomingRenewal) string {
	dayWord := "days"
	if r.DaysUntil == 1 {
		dayWord = "day"
	}
	return fmt.Sprintf(
		"⏰ *Renewal Reminder — SubTrack*\n\n"+
			"*%s* renews in *%d %s* (%s).\n"+
			"Amount: *%s*\n\n"+
			"If you don’t wish to continue, cancel now.",
		r.Merchant, r.DaysUntil, dayWord, r.RenewalDate,
		formatMoney(r.Currency, r.Amount),
	)
}

// ScanFailedMessage renders the failure notice for a scheduled scan.
func ScanFailedMessage(err error) string {
	return fmt.Sprintf("⚠️ *SubTrack scan failed*\n`%v`", err)
}

func formatMoney(currency string, amount float64) string {
	return fmt.Sprintf("%s%.2f", core.Symbol(currency), amount)
}

func sortedCurrencies(spend map[string]float64) []string {
	currencies := make([]string, 0, len(spend))
	for cur := range spend {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	return currencies
}
