package ical

import (
	"strings"
	"time"
)

// contentLine is one unfolded property line split into its parts:
// NAME;PARAM=X;PARAM=Y:VALUE. Tokenizing once up front means the event
// resolver never re-scans raw strings.
type contentLine struct {
	name   string
	params []string
	value  string
}

func parseContentLine(line string) contentLine {
	head, value, found := strings.Cut(line, ":")
	if !found {
		return contentLine{name: strings.ToUpper(strings.TrimSpace(line))}
	}

	parts := strings.Split(head, ";")
	cl := contentLine{
		name:  strings.ToUpper(strings.TrimSpace(parts[0])),
		value: value,
	}
	for _, p := range parts[1:] {
		cl.params = append(cl.params, strings.ToUpper(strings.TrimSpace(p)))
	}
	return cl
}

func (cl contentLine) hasParam(param string) bool {
	for _, p := range cl.params {
		if p == param {
			return true
		}
	}
	return false
}

// Fixed-width layouts used by rental platform exports. The date-time form
// is matched as a prefix so trailing markers (a stray Z, fractional
// seconds) are ignored and the value is read as naive local time.
const (
	layoutDateOnly = "20060102"
	layoutDateTime = "20060102T150405"
)

// Generic fallbacks for feeds that emit dashed or RFC 3339 style values.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseValue reads a DTSTART/DTEND property value. dateOnly reports whether
// the value carried no time-of-day component. ok is false when the value is
// unparseable in every known form; callers exclude such entries rather
// than failing the whole feed.
func parseValue(value string) (t time.Time, dateOnly bool, ok bool) {
	trimmed := strings.TrimSpace(value)

	if len(trimmed) == len(layoutDateOnly) {
		if t, err := time.ParseInLocation(layoutDateOnly, trimmed, time.UTC); err == nil {
			return t, true, true
		}
	}

	if len(trimmed) >= len(layoutDateTime) {
		if t, err := time.ParseInLocation(layoutDateTime, trimmed[:len(layoutDateTime)], time.UTC); err == nil {
			return t, false, true
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, false, true
		}
	}

	return time.Time{}, false, false
}
