package normalize

import (
	"strings"
	"time"
)

// DefaultDateFormats are tried in order by Date when no formats are given.
// Day-first layouts come before ISO because the exports are Brazilian.
var DefaultDateFormats = []string{
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2006/01/02",
}

// Date parses s with the first matching layout in formats (DefaultDateFormats
// when empty). The result is truncated to the calendar day in UTC. It returns
// false when no layout matches; it never panics.
func Date(s string, formats []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, nanMarker) {
		return time.Time{}, false
	}
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
