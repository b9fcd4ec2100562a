// Package analysis implements the subscription analysis engine: frequency
// inference from inter-charge gaps, renewal projection, duplicate-service
// detection, and aggregate report assembly.
//
// The engine is a pure transform of the record store's contents at call
// time. Every run recomputes the full report from scratch; there is no
// cross-call state, so concurrent runs over a stable snapshot are
// independent and idempotent. Data-quality problems (unparseable dates,
// missing amounts) are absorbed into default values, never returned as
// errors.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"subtrack/internal/core"
)

// RenewalHorizonDays is the look-ahead window for the upcoming-renewals list.
const RenewalHorizonDays = 30

// RecordSource is the read side of the record store the analyzer consumes.
// It must return a consistent snapshot: the full record set is loaded before
// any aggregate is computed.
type RecordSource interface {
	List(ctx context.Context) ([]core.ChargeRecord, error)
}

// Analyzer turns the current record set into a Report. Now is injectable so
// "today" is fixed in tests; it defaults to time.Now.
type Analyzer struct {
	Source RecordSource
	Now    func() time.Time
}

func New(source RecordSource) *Analyzer {
	return &Analyzer{Source: source, Now: time.Now}
}

// Run loads all records and assembles the full report. The only error path
// is the store read itself; every input shape yields a report.
func (a *Analyzer) Run(ctx context.Context) (core.Report, error) {
	records, err := a.Source.List(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("load records: %w", err)
	}

	now := a.Now()
	if len(records) == 0 {
		return core.EmptyReport(now), nil
	}

	active, activeOrder, cancelled, cancelledOrder := partition(records)

	summaries := make([]core.MerchantSummary, 0, len(activeOrder))
	for _, merchant := range activeOrder {
		summaries = append(summaries, SummarizeMerchant(merchant, active[merchant], now))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].MonthlyCost > summaries[j].MonthlyCost
	})

	// Per-currency totals. Rounded after each accumulation step, matching
	// the trend buckets below; totals are never converted across
	// currencies.
	spendByCurrency := map[string]float64{}
	for _, m := range summaries {
		spendByCurrency[m.Currency] = core.Round2(spendByCurrency[m.Currency] + m.MonthlyCost)
	}
	totalMonthly := spendByCurrency["USD"]
	totalYearly := core.Round2(totalMonthly * 12)

	overlaps := DetectOverlaps(summaries)
	var savings float64
	for _, o := range overlaps {
		savings += o.PotentialSavings
	}
	savings = core.Round2(savings)

	forgotten := []core.MerchantSummary{}
	for _, m := range summaries {
		if m.IsForgotten {
			forgotten = append(forgotten, m)
		}
	}

	report := core.Report{
		GeneratedAt:             now.UTC(),
		TotalRecords:            len(records),
		MerchantCount:           len(summaries),
		TotalMonthlySpend:       totalMonthly,
		TotalYearlySpend:        totalYearly,
		SpendByCurrency:         spendByCurrency,
		PotentialMonthlySavings: savings,
		Merchants:               summaries,
		Overlaps:                overlaps,
		Forgotten:               forgotten,
		UpcomingRenewals:        upcomingRenewals(summaries, now),
		RecentlyCancelled:       recentlyCancelled(active, cancelled, cancelledOrder),
		MonthlyTrend:            monthlyTrend(records),
		CategoryBreakdown:       categoryBreakdown(summaries),
	}

	slog.Info("Analysis complete",
		"merchants", report.MerchantCount,
		"monthly_spend_usd", report.TotalMonthlySpend,
		"overlaps", len(report.Overlaps),
		"forgotten", len(report.Forgotten),
		"renewals_30d", len(report.UpcomingRenewals))

	return report, nil
}

// partition splits records by status into per-merchant groups, keeping the
// first-seen merchant order of each partition. A merchant with any active
// record is considered still subscribed regardless of cancellation signals.
func partition(records []core.ChargeRecord) (active map[string][]core.ChargeRecord, activeOrder []string, cancelled map[string][]core.ChargeRecord, cancelledOrder []string) {
	active = map[string][]core.ChargeRecord{}
	cancelled = map[string][]core.ChargeRecord{}
	for _, r := range records {
		if r.Cancelled() {
			if _, seen := cancelled[r.Merchant]; !seen {
				cancelledOrder = append(cancelledOrder, r.Merchant)
			}
			cancelled[r.Merchant] = append(cancelled[r.Merchant], r)
		} else {
			if _, seen := active[r.Merchant]; !seen {
				activeOrder = append(activeOrder, r.Merchant)
			}
			active[r.Merchant] = append(active[r.Merchant], r)
		}
	}
	return active, activeOrder, cancelled, cancelledOrder
}

// upcomingRenewals lists summaries whose predicted renewal falls within
// [today, today+30d] inclusive, ascending by days until.
func upcomingRenewals(summaries []core.MerchantSummary, now time.Time) []core.UpcomingRenewal {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, RenewalHorizonDays)

	upcoming := []core.UpcomingRenewal{}
	for _, m := range summaries {
		if m.NextRenewal == nil {
			continue
		}
		renewal, err := time.Parse(core.DateLayout, *m.NextRenewal)
		if err != nil {
			continue
		}
		if renewal.Before(today) || renewal.After(horizon) {
			continue
		}
		upcoming = append(upcoming, core.UpcomingRenewal{
			Merchant:    m.Merchant,
			Amount:      m.AvgAmount,
			Currency:    m.Currency,
			RenewalDate: *m.NextRenewal,
			DaysUntil:   int(renewal.Sub(today).Hours() / 24),
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysUntil < upcoming[j].DaysUntil
	})
	return upcoming
}

// recentlyCancelled derives an entry for each merchant seen only in the
// cancelled partition: last-seen date is the max cancelled-record date, last
// amount is the first non-nil amount found. Sorted by cancelled date
// descending; entries without a date sort last.
func recentlyCancelled(active, cancelled map[string][]core.ChargeRecord, cancelledOrder []string) []core.CancelledSubscription {
	out := []core.CancelledSubscription{}
	for _, merchant := range cancelledOrder {
		if _, stillActive := active[merchant]; stillActive {
			continue
		}
		recs := cancelled[merchant]

		var lastSeen string
		var lastDate time.Time
		for _, r := range recs {
			if d, ok := r.ChargeDate(); ok && (lastSeen == "" || d.After(lastDate)) {
				lastDate = d
				lastSeen = d.Format(core.DateLayout)
			}
		}

		var lastAmount *float64
		for _, r := range recs {
			if r.Amount != nil {
				lastAmount = r.Amount
				break
			}
		}

		currency := recs[0].Currency
		if currency == "" {
			currency = "USD"
		}

		out = append(out, core.CancelledSubscription{
			Merchant:      merchant,
			Category:      Categorize(merchant),
			CancelledDate: lastSeen,
			LastAmount:    lastAmount,
			Currency:      currency,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CancelledDate > out[j].CancelledDate
	})
	return out
}

// monthlyTrend buckets active-record amounts by (currency, year-month).
// Each bucket is re-rounded after every accumulation step; the cumulative
// drift versus summing-then-rounding-once is a documented compatibility
// behavior, pinned by tests.
func monthlyTrend(records []core.ChargeRecord) map[string][]core.TrendPoint {
	byCurrency := map[string]map[string]float64{}
	for _, r := range records {
		if r.Cancelled() {
			continue
		}
		if _, ok := r.ChargeDate(); !ok {
			continue
		}
		month := r.Date[:7] // YYYY-MM
		currency := r.Currency
		if currency == "" {
			currency = "USD"
		}
		var amount float64
		if r.Amount != nil {
			amount = *r.Amount
		}
		if byCurrency[currency] == nil {
			byCurrency[currency] = map[string]float64{}
		}
		byCurrency[currency][month] = core.Round2(byCurrency[currency][month] + amount)
	}

	trend := map[string][]core.TrendPoint{}
	for currency, months := range byCurrency {
		keys := make([]string, 0, len(months))
		for m := range months {
			keys = append(keys, m)
		}
		sort.Strings(keys)
		series := make([]core.TrendPoint, len(keys))
		for i, m := range keys {
			series[i] = core.TrendPoint{Month: m, Amount: months[m]}
		}
		trend[currency] = series
	}
	return trend
}

// categoryBreakdown sums monthly cost per category, descending by cost.
func categoryBreakdown(summaries []core.MerchantSummary) []core.CategorySpend {
	sums := map[string]float64{}
	var order []string
	for _, m := range summaries {
		if _, seen := sums[m.Category]; !seen {
			order = append(order, m.Category)
		}
		sums[m.Category] = core.Round2(sums[m.Category] + m.MonthlyCost)
	}

	out := make([]core.CategorySpend, 0, len(order))
	for _, cat := range order {
		out = append(out, core.CategorySpend{Category: cat, MonthlyCost: sums[cat]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MonthlyCost > out[j].MonthlyCost
	})
	return out
}
