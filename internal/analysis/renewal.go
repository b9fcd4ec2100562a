package analysis

import (
	"time"

	"subtrack/internal/core"
)

// renewalOffsets maps each known cadence to the flat day offset added to the
// last observed charge. This is a projection, not a recurrence rule: it does
// not anchor to a billing day of month, which is acceptable at the system's
// day-level granularity.
var renewalOffsets = map[core.Frequency]int{
	core.Monthly:   30,
	core.Quarterly: 91,
	core.Yearly:    365,
}

// PredictNextRenewal projects the next charge date from the maximum observed
// date and the detected cadence. Returns nil when the date list is empty or
// the cadence is unknown.
func PredictNextRenewal(dates []time.Time, frequency core.Frequency) *time.Time {
	if len(dates) == 0 {
		return nil
	}
	offset, ok := renewalOffsets[frequency]
	if !ok {
		return nil
	}

	last := dates[0]
	for _, d := range dates[1:] {
		if d.After(last) {
			last = d
		}
	}
	next := last.AddDate(0, 0, offset)
	return &next
}
