package catalog

import (
	"math"
	"strings"
	"time"
)

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date-only layouts are read as midnight in the caller's location.
var dateOnlyLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// ParseDeadline parses the deadline formats seen in catalog feeds. Date-only
// values are interpreted in loc. The second result is false for empty or
// unparseable input.
func ParseDeadline(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysUntil returns ceil((deadline - now) / 24h).
func DaysUntil(deadline, now time.Time) int {
	days := math.Ceil(deadline.Sub(now).Hours() / 24)
	if days == 0 {
		return 0 // normalizes -0
	}
	return int(days)
}
