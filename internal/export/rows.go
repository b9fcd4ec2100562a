package export

import (
	"fmt"
	"sort"

	"subtrack/internal/core"
)

// MerchantHeader is the column layout of the merchant section.
var MerchantHeader = []any{
	"Merchant", "Category", "Currency", "Frequency",
	"Monthly Cost", "Yearly Cost", "Last Charge", "Next Renewal", "Forgotten",
}

// MerchantRows flattens the report's merchant summaries into sheet rows,
// header first. Pointer fields render as empty cells when absent.
func MerchantRows(report core.Report) [][]any {
	rows := make([][]any, 0, len(report.Merchants)+1)
	rows = append(rows, MerchantHeader)
	for _, m := range report.Merchants {
		forgotten := ""
		if m.IsForgotten {
			forgotten = "yes"
		}
		rows = append(rows, []any{
			m.Merchant, m.Category, m.Currency, string(m.Frequency),
			m.MonthlyCost, m.YearlyCost,
			strOrEmpty(m.LastCharge), strOrEmpty(m.NextRenewal), forgotten,
		})
	}
	return rows
}

// TrendRows flattens the per-currency monthly trend into rows of
// (currency, month, amount), currencies in sorted order.
func TrendRows(report core.Report) [][]any {
	rows := [][]any{{"Currency", "Month", "Amount"}}
	currencies := make([]string, 0, len(report.MonthlyTrend))
	for cur := range report.MonthlyTrend {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		for _, p := range report.MonthlyTrend[cur] {
			rows = append(rows, []any{cur, p.Month, p.Amount})
		}
	}
	return rows
}

// SummaryRows is the small header block written above the merchant table.
func SummaryRows(report core.Report) [][]any {
	return [][]any{
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Merchants", report.MerchantCount},
		{"Monthly spend (USD)", report.TotalMonthlySpend},
		{"Potential savings (USD)", report.PotentialMonthlySavings},
		{"Records", report.TotalRecords},
	}
}

func strOrEmpty(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

// Ref builds a human-readable range reference for logs.
func Ref(sheet string, rows int) string {
	return fmt.Sprintf("%s!A1:I%d", sheet, rows)
}
