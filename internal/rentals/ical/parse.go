// Package ical extracts blocked date ranges from the iCalendar export
// feeds published by short-term-rental platforms. It is deliberately not a
// general RFC 5545 parser: feeds in the wild carry legacy quirks
// (exclusive all-day ends, midnight-terminated overnight bookings, folded
// lines, malformed entries) and the goal is to tolerate all of them while
// extracting only which whole days are unavailable. Recurrence rules, time
// zones, and alarms are out of scope.
package ical

import (
	"time"

	"github.com/vwcamper77/rentals-sync/internal/rentals/daterange"
)

// DefaultMonthsAhead bounds the rolling sync window.
const DefaultMonthsAhead = 18

const (
	beginEvent = "BEGIN:VEVENT"
	endEvent   = "END:VEVENT"
)

// ParseBlockedRanges reduces raw feed text to the minimal sorted set of
// non-overlapping, non-adjacent blocked ranges inside the rolling window
// [today, today + monthsAhead]. Malformed or cancelled entries are skipped
// silently; only total feed unavailability is an error, and that is the
// caller's concern.
func ParseBlockedRanges(text string, today time.Time, monthsAhead int) []daterange.Range {
	if monthsAhead <= 0 {
		monthsAhead = DefaultMonthsAhead
	}

	var ranges []daterange.Range
	var buffer []contentLine
	inEvent := false

	for _, line := range UnfoldLines(text) {
		switch line {
		case beginEvent:
			buffer = nil
			inEvent = true
		case endEvent:
			if inEvent {
				if r, ok := resolveEventRange(buffer); ok {
					ranges = append(ranges, r)
				}
			}
			buffer = nil
			inEvent = false
		default:
			if inEvent {
				buffer = append(buffer, parseContentLine(line))
			}
		}
	}

	windowStart := daterange.Truncate(today)
	windowEnd := daterange.Truncate(windowStart.AddDate(0, monthsAhead, 0))
	return daterange.Merge(daterange.Clip(ranges, windowStart, windowEnd))
}
