package core

import "time"

const (
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
	Unknown   Frequency = "unknown"
)

type (
	// Frequency is the inferred billing cadence of a merchant.
	Frequency string

	// MerchantSummary is the derived cost profile of one merchant's active
	// charges. Summaries exist only as the output of one analysis pass;
	// the record store is the only durable source of truth.
	MerchantSummary struct {
		Merchant      string    `json:"merchant"`
		Category      string    `json:"category"`
		ChargeCount   int       `json:"charge_count"`
		AvgAmount     float64   `json:"avg_amount"`
		Currency      string    `json:"currency"`
		Frequency     Frequency `json:"frequency"`
		MonthlyCost   float64   `json:"monthly_cost"`
		YearlyCost    float64   `json:"yearly_cost"`
		LastCharge    *string   `json:"last_charge"`
		DaysSinceLast *int      `json:"days_since_last"`
		NextRenewal   *string   `json:"next_renewal"`
		Dates         []string  `json:"dates"`
		IsForgotten   bool      `json:"is_forgotten"`
	}

	// OverlapWarning pairs two same-category merchants whose monthly costs
	// sit within the duplicate tolerance band. Regenerated every run,
	// never persisted.
	OverlapWarning struct {
		Category         string  `json:"category"`
		MerchantA        string  `json:"merchant_a"`
		MerchantB        string  `json:"merchant_b"`
		MonthlyCostA     float64 `json:"monthly_cost_a"`
		MonthlyCostB     float64 `json:"monthly_cost_b"`
		PotentialSavings float64 `json:"potential_savings"`
		Reason           string  `json:"reason"`
	}

	// UpcomingRenewal is a predicted charge inside the 30-day horizon.
	UpcomingRenewal struct {
		Merchant    string  `json:"merchant"`
		Amount      float64 `json:"amount"`
		Currency    string  `json:"currency"`
		RenewalDate string  `json:"renewal_date"`
		DaysUntil   int     `json:"days_until"`
	}

	// CancelledSubscription is a merchant seen only in the cancelled
	// partition. LastAmount is best-effort: the first non-nil amount
	// found, with no recency guarantee.
	CancelledSubscription struct {
		Merchant      string   `json:"merchant"`
		Category      string   `json:"category"`
		CancelledDate string   `json:"cancelled_date"`
		LastAmount    *float64 `json:"last_amount"`
		Currency      string   `json:"currency"`
	}

	// TrendPoint is one month's summed active spend in a single currency.
	TrendPoint struct {
		Month  string  `json:"month"` // YYYY-MM
		Amount float64 `json:"amount"`
	}

	// CategorySpend is the summed monthly cost of one category.
	CategorySpend struct {
		Category    string  `json:"category"`
		MonthlyCost float64 `json:"monthly_cost"`
	}

	// Report is the full analysis output: a disposable snapshot, safe to
	// discard and recompute from the record store at any time.
	//
	// TotalMonthlySpend is the USD bucket only, kept for backwards
	// compatibility; SpendByCurrency is the real breakdown. Totals are
	// never converted between currencies.
	Report struct {
		GeneratedAt             time.Time               `json:"generated_at"`
		TotalRecords            int                     `json:"total_records"`
		MerchantCount           int                     `json:"merchant_count"`
		TotalMonthlySpend       float64                 `json:"total_monthly_spend"`
		TotalYearlySpend        float64                 `json:"total_yearly_spend"`
		SpendByCurrency         map[string]float64      `json:"spend_by_currency"`
		PotentialMonthlySavings float64                 `json:"potential_monthly_savings"`
		Merchants               []MerchantSummary       `json:"merchants"`
		Overlaps                []OverlapWarning        `json:"overlaps"`
		Forgotten               []MerchantSummary       `json:"forgotten_subscriptions"`
		UpcomingRenewals        []UpcomingRenewal       `json:"upcoming_renewals_30d"`
		RecentlyCancelled       []CancelledSubscription `json:"recently_cancelled"`
		MonthlyTrend            map[string][]TrendPoint `json:"monthly_trend"`
		CategoryBreakdown       []CategorySpend         `json:"category_breakdown"`
	}
)

// EmptyReport is the canonical zero-value report for an empty record store:
// all counts zero, all lists empty, no currency buckets. Not an error.
func EmptyReport(now time.Time) Report {
	return Report{
		GeneratedAt:       now.UTC(),
		SpendByCurrency:   map[string]float64{},
		Merchants:         []MerchantSummary{},
		Overlaps:          []OverlapWarning{},
		Forgotten:         []MerchantSummary{},
		UpcomingRenewals:  []UpcomingRenewal{},
		RecentlyCancelled: []CancelledSubscription{},
		MonthlyTrend:      map[string][]TrendPoint{},
		CategoryBreakdown: []CategorySpend{},
	}
}
