package services

import (
	"strings"
	"time"
)

// Date layouts split by year format. Four-digit layouts are unambiguous and
// tried first. Two-digit years follow Go's rule (69-99 → 19xx, 00-68 → 20xx),
// which keeps parsing independent of the current date.
var (
	fourDigitYearLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02",
		"2006.01.02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006",
		"01/02/2006",
		"1-2-2006",
		"01-02-2006",
		"1.2.2006",
		"01.02.2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"2 January 2006",
		"02-Jan-2006",
		"Mon, 02 Jan 2006 15:04:05 MST",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06", "02-Jan-06",
	}
)

// parseDate parses s with the known layouts. Times without a zone are UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return time.Time{}, false
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
