package analysis

import (
	"fmt"
	"strconv"

	"subtrack/internal/core"
)

// OverlapTolerance is the relative price-difference ceiling under which two
// same-category subscriptions are flagged as likely duplicates. 30% catches
// near-identical tiers (an $18 and a $20 AI assistant) without flagging a
// $5 tool against a $50 one.
const OverlapTolerance = 0.30

// DetectOverlaps compares every unordered pair of summaries within each
// category and flags pairs priced within OverlapTolerance of each other.
// The "Other" bucket is excluded entirely, pairs with a zero monthly cost
// are skipped, and output preserves insertion order (category first-seen
// order, then nested pair order). Potential savings is the cheaper of the
// two costs: the naive assumption that the cheaper one still meets the need.
func DetectOverlaps(summaries []core.MerchantSummary) []core.OverlapWarning {
	overlaps := []core.OverlapWarning{}

	byCategory := map[string][]core.MerchantSummary{}
	var order []string
	for _, m := range summaries {
		if m.Category == CategoryOther {
			continue
		}
		if _, seen := byCategory[m.Category]; !seen {
			order = append(order, m.Category)
		}
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	for _, category := range order {
		group := byCategory[category]
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.MonthlyCost == 0 || b.MonthlyCost == 0 {
					continue
				}
				ratio := priceDiffRatio(a.MonthlyCost, b.MonthlyCost)
				if ratio > OverlapTolerance {
					continue
				}
				overlaps = append(overlaps, core.OverlapWarning{
					Category:         category,
					MerchantA:        a.Merchant,
					MerchantB:        b.Merchant,
					MonthlyCostA:     a.MonthlyCost,
					MonthlyCostB:     b.MonthlyCost,
					PotentialSavings: min(a.MonthlyCost, b.MonthlyCost),
					Reason: fmt.Sprintf("Both are %s tools with similar pricing ($%s/mo vs $%s/mo).",
						category, trimFloat(a.MonthlyCost), trimFloat(b.MonthlyCost)),
				})
			}
		}
	}

	return overlaps
}

// priceDiffRatio is the relative difference |a-b| / max(a,b). Callers must
// guard against zero costs.
func priceDiffRatio(a, b float64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff / max(a, b)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
