package analysis

import (
	"log/slog"
	"sort"
	"time"

	"subtrack/internal/core"
)

// forgottenAfterDays is the silence threshold after which an active-cadence
// subscription counts as forgotten.
const forgottenAfterDays = 90

// SummarizeMerchant aggregates one merchant's active records into a
// normalized cost profile. The function is total over any non-empty group:
// records with missing amounts or unparseable dates are skipped field by
// field, and a group with nothing usable still yields a summary with
// null/zero derived values.
func SummarizeMerchant(merchant string, records []core.ChargeRecord, now time.Time) core.MerchantSummary {
	var amounts []float64
	var dates []time.Time
	for _, r := range records {
		if r.Amount != nil {
			amounts = append(amounts, *r.Amount)
		}
		if d, ok := r.ChargeDate(); ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	frequency := DetectFrequency(dates)
	next := PredictNextRenewal(dates, frequency)

	var avgAmount float64
	if len(amounts) > 0 {
		var sum float64
		for _, a := range amounts {
			sum += a
		}
		avgAmount = core.Round2(sum / float64(len(amounts)))
	}

	// Normalize to a monthly-equivalent figure. Monthly and unknown
	// cadences are treated as already monthly.
	monthlyCost := avgAmount
	switch frequency {
	case core.Yearly:
		monthlyCost = core.Round2(avgAmount / 12)
	case core.Quarterly:
		monthlyCost = core.Round2(avgAmount / 3)
	}
	yearlyCost := core.Round2(monthlyCost * 12)

	summary := core.MerchantSummary{
		Merchant:    merchant,
		Category:    Categorize(merchant),
		ChargeCount: len(records),
		AvgAmount:   avgAmount,
		Currency:    groupCurrency(merchant, records),
		Frequency:   frequency,
		MonthlyCost: monthlyCost,
		YearlyCost:  yearlyCost,
		Dates:       formatDates(dates),
	}

	if len(dates) > 0 {
		last := dates[len(dates)-1]
		lastStr := last.Format(core.DateLayout)
		days := wholeDaysBetween(last, now)
		summary.LastCharge = &lastStr
		summary.DaysSinceLast = &days
		// An irregular or one-off charge is never "forgotten": with no
		// detected cadence there is no expected next charge to miss.
		summary.IsForgotten = days > forgottenAfterDays && frequency != core.Unknown
	}
	if next != nil {
		nextStr := next.Format(core.DateLayout)
		summary.NextRenewal = &nextStr
	}

	return summary
}

// groupCurrency returns the currency of the group's first record, defaulting
// to USD. A merchant's records are assumed to share one currency; when they
// do not, the summary would silently misreport, so the mix is at least
// surfaced in the logs.
func groupCurrency(merchant string, records []core.ChargeRecord) string {
	currency := records[0].Currency
	if currency == "" {
		currency = "USD"
	}
	seen := map[string]bool{currency: true}
	for _, r := range records[1:] {
		c := r.Currency
		if c == "" {
			c = "USD"
		}
		if !seen[c] {
			seen[c] = true
			slog.Warn("Merchant group mixes currencies; summary keeps the first",
				"merchant", merchant, "kept", currency, "also_seen", c)
		}
	}
	return currency
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(core.DateLayout)
	}
	return out
}

// wholeDaysBetween counts whole days from a charge date to the run time,
// both truncated to day granularity.
func wholeDaysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
