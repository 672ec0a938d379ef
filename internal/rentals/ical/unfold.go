package ical

import "strings"

// UnfoldLines reverses iCalendar line folding, returning one logical line
// per property. A physical line beginning with a space or tab continues the
// previous logical line; the leading whitespace is stripped before joining.
// Line endings may be CRLF, CR, or LF in any mix. Empty lines are dropped.
func UnfoldLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var lines []string
	for _, raw := range strings.Split(normalized, "\n") {
		if raw == "" {
			continue
		}
		if raw[0] == ' ' || raw[0] == '\t' {
			// Continuation. A feed whose very first line is folded has
			// nothing to append to; treat it as continuing an empty line.
			prev := ""
			if len(lines) > 0 {
				prev = lines[len(lines)-1]
				lines = lines[:len(lines)-1]
			}
			lines = append(lines, prev+strings.TrimLeft(raw, " \t"))
			continue
		}
		lines = append(lines, strings.TrimSpace(raw))
	}
	return lines
}
