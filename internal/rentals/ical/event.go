package ical

import (
	"strings"
	"time"

	"github.com/vwcamper77/rentals-sync/internal/rentals/daterange"
)

const (
	propStart  = "DTSTART"
	propEnd    = "DTEND"
	propStatus = "STATUS"

	paramDateValue = "VALUE=DATE"
)

// resolveEventRange reduces one VEVENT's property lines to an inclusive
// date-only blocked range. ok is false when the event contributes nothing:
// cancelled, missing DTSTART, or a DTSTART nothing can parse.
func resolveEventRange(lines []contentLine) (daterange.Range, bool) {
	var start, end *contentLine
	cancelled := false

	for i := range lines {
		switch lines[i].name {
		case propStart:
			if start == nil {
				start = &lines[i]
			}
		case propEnd:
			if end == nil {
				end = &lines[i]
			}
		case propStatus:
			if strings.HasPrefix(strings.ToUpper(lines[i].value), "CANCELLED") {
				cancelled = true
			}
		}
	}

	if start == nil || cancelled {
		return daterange.Range{}, false
	}

	startTime, startDateOnly, ok := parseValue(start.value)
	if !ok {
		return daterange.Range{}, false
	}

	var endTime time.Time
	hasEnd := false
	if end != nil {
		if t, _, ok := parseValue(end.value); ok {
			endTime = t
			hasEnd = true
		}
	}

	allDay := startDateOnly || start.hasParam(paramDateValue) ||
		(end != nil && end.hasParam(paramDateValue))

	startDate := daterange.Truncate(startTime)
	endDate := startDate
	if hasEnd {
		endDate = daterange.Truncate(endTime)
	}

	if hasEnd {
		switch {
		case allDay:
			// All-day events store the end as the day after the last
			// blocked day (exclusive end); bring it back one day.
			endDate = endDate.AddDate(0, 0, -1)
		case isMidnight(endTime) && endDate.After(startDate):
			// Some providers export overnight bookings as timed events
			// ending exactly at midnight. Treat that like the exclusive
			// all-day end. Do not widen this heuristic without evidence
			// from real feeds.
			endDate = endDate.AddDate(0, 0, -1)
		}
	}

	if endDate.Before(startDate) {
		endDate = startDate
	}

	return daterange.Range{Start: startDate, End: endDate}, true
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
