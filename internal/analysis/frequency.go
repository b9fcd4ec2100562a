package analysis

import (
	"time"

	"subtrack/internal/core"
)

// Inclusive mean-gap bands, in days. Real billing cycles drift a few days
// around 30/90/365 because of weekends, leap years, and processor timing;
// the bands absorb that jitter without calendar-aware cycle arithmetic.
const (
	monthlyGapMin   = 25
	monthlyGapMax   = 35
	quarterlyGapMin = 80
	quarterlyGapMax = 100
	yearlyGapMin    = 340
	yearlyGapMax    = 390
)

// DetectFrequency infers a billing cadence from a non-decreasing sequence of
// charge dates. Fewer than two dates leave nothing to measure and yield
// Unknown. There is no outlier rejection: a single irregular gap can shift
// the mean out of every band, which also yields Unknown.
func DetectFrequency(dates []time.Time) core.Frequency {
	if len(dates) < 2 {
		return core.Unknown
	}

	var total float64
	for i := 1; i < len(dates); i++ {
		total += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	avgGap := total / float64(len(dates)-1)

	switch {
	case avgGap >= monthlyGapMin && avgGap <= monthlyGapMax:
		return core.Monthly
	case avgGap >= quarterlyGapMin && avgGap <= quarterlyGapMax:
		return core.Quarterly
	case avgGap >= yearlyGapMin && avgGap <= yearlyGapMax:
		return core.Yearly
	default:
		return core.Unknown
	}
}
