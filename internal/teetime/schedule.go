package teetime

import "time"

// pollIntervals maps days-until-play to the re-index interval. Near dates are
// polled aggressively because inventory churns; far dates tolerate staleness,
// which keeps us under provider rate limits. Index 0 is unused (same-day slots
// are polled at the day+1 cadence).
var pollIntervals = [...]time.Duration{
	1:  15 * time.Minute,
	2:  30 * time.Minute,
	3:  1 * time.Hour,
	4:  90 * time.Minute,
	5:  2 * time.Hour,
	6:  3 * time.Hour,
	7:  4 * time.Hour,
	8:  5 * time.Hour,
	9:  6 * time.Hour,
	10: 7 * time.Hour,
	11: 8 * time.Hour,
	12: 9 * time.Hour,
	13: 10 * time.Hour,
	14: 11*time.Hour + 30*time.Minute,
	15: 13 * time.Hour,
}

// MaxIndexableDaysOut is the horizon of the indexing schedule.
const MaxIndexableDaysOut = len(pollIntervals) - 1

// PollInterval returns how often a date daysOut in the future should be
// re-indexed. Dates beyond the horizon use the slowest cadence; today and
// past dates use the fastest.
func PollInterval(daysOut int) time.Duration {
	if daysOut < 1 {
		return pollIntervals[1]
	}
	if daysOut > MaxIndexableDaysOut {
		return pollIntervals[MaxIndexableDaysOut]
	}
	return pollIntervals[daysOut]
}
