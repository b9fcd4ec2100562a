package analysis

import (
	"fmt"
	"sort"
	"time"

	"subtrack/internal/core"
)

// HealthScore grades one subscription by usage signals from the latest
// report. Scores are 0-100; lower means stronger cancel candidate.
type HealthScore struct {
	Merchant    string   `json:"merchant"`
	Category    string   `json:"category"`
	Currency    string   `json:"currency"`
	MonthlyCost float64  `json:"monthly_cost"`
	Score       int      `json:"score"`
	Label       string   `json:"label"`
	Tips        []string `json:"tips"`
	ChargeCount int      `json:"charge_count"`
	LastCharge  string   `json:"last_charge"`
}

// HealthScores computes a score per merchant in the report, worst first.
// Factors: charge frequency, recency of the last charge, the analyzer's
// forgotten flag, absolute cost, and overlap participation.
func HealthScores(report core.Report, now time.Time) []HealthScore {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	results := make([]HealthScore, 0, len(report.Merchants))

	for _, m := range report.Merchants {
		score := 50
		tips := []string{}

		if m.ChargeCount >= 6 {
			score += 20
		} else if m.ChargeCount >= 3 {
			score += 10
		}

		var lastCharge string
		if m.LastCharge != nil {
			lastCharge = *m.LastCharge
			if last, err := time.Parse(core.DateLayout, lastCharge); err == nil {
				daysAgo := int(today.Sub(last).Hours() / 24)
				switch {
				case daysAgo <= 30:
					score += 20
				case daysAgo <= 60:
					score += 10
				case daysAgo > 90:
					score -= 15
					tips = append(tips, fmt.Sprintf("No charge in %d days — might be forgotten", daysAgo))
				}
			}
		}

		if m.IsForgotten {
			score -= 20
			tips = append(tips, "Flagged as potentially forgotten")
		}

		if m.MonthlyCost > 50 {
			tips = append(tips, "High-cost subscription — verify it's worth it")
		} else if m.MonthlyCost < 5 {
			score += 5
		}

		for _, ov := range report.Overlaps {
			if m.Merchant == ov.MerchantA || m.Merchant == ov.MerchantB {
				score -= 15
				tips = append(tips, fmt.Sprintf("Overlaps with another service in '%s'", ov.Category))
				break
			}
		}

		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		results = append(results, HealthScore{
			Merchant:    m.Merchant,
			Category:    m.Category,
			Currency:    m.Currency,
			MonthlyCost: m.MonthlyCost,
			Score:       score,
			Label:       healthLabel(score),
			Tips:        tips,
			ChargeCount: m.ChargeCount,
			LastCharge:  lastCharge,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	return results
}

func healthLabel(score int) string {
	switch {
	case score >= 75:
		return "Healthy"
	case score >= 50:
		return "Fair"
	case score >= 25:
		return "Review"
	default:
		return "Cancel?"
	}
}
