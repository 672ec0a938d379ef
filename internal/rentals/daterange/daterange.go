// Package daterange implements date-only interval arithmetic for blocked
// availability ranges. All dates are naive calendar dates pinned to
// midnight UTC so that arithmetic never drifts across DST boundaries.
package daterange

import (
	"fmt"
	"sort"
	"time"
)

// ISO is the wire format for date-only values.
const ISO = "2006-01-02"

// Range is an inclusive start/end date interval. Both boundaries are
// normalized to midnight UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Day builds a normalized date from its calendar components.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time-of-day component of t.
func Truncate(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// Parse reads an ISO YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(ISO, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a normalized date as ISO YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(ISO)
}

func (r Range) String() string {
	return Format(r.Start) + ".." + Format(r.End)
}

// Clip restricts ranges to the window [windowStart, windowEnd], truncating
// boundaries that stick out and dropping ranges entirely outside. Relative
// input order is preserved; sorting happens in Merge.
func Clip(ranges []Range, windowStart, windowEnd time.Time) []Range {
	clipped := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.End.Before(windowStart) || r.Start.After(windowEnd) {
			continue
		}
		if r.Start.Before(windowStart) {
			r.Start = windowStart
		}
		if r.End.After(windowEnd) {
			r.End = windowEnd
		}
		clipped = append(clipped, r)
	}
	return clipped
}

// Merge collapses ranges into the minimal sorted set of non-overlapping,
// non-adjacent ranges. Two ranges separated by a gap of at most one day are
// fused, so consecutive blocked stretches come back as a single range.
// Merge is idempotent: running it on its own output changes nothing.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return []Range{}
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Range, 0, len(sorted))
	current := sorted[0]
	for _, r := range sorted[1:] {
		if !r.Start.After(current.End.AddDate(0, 0, 1)) {
			if r.End.After(current.End) {
				current.End = r.End
			}
			continue
		}
		merged = append(merged, current)
		current = r
	}
	return append(merged, current)
}
