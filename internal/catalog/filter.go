package catalog

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ClosingSoonDays is the window used by the "closing soon" filter.
const ClosingSoonDays = 7

// Criteria holds the active filters. Zero values are inactive; every active
// filter must hold for a record to remain.
type Criteria struct {
	Query       string
	Category    string // exact, case-insensitive; "all" is inactive
	Eligibility string // substring of any eligibility clause
	Level       string
	Type        string
	Stream      string
	MinFitScore float64

	Center   *GeoPoint
	RadiusKm float64

	// WithinDays keeps records whose deadline is 0..N days away.
	WithinDays *int
}

// Within returns a pointer for Criteria.WithinDays.
func Within(days int) *int {
	return &days
}

// Filter returns the records matching c. Records missing an id or name are
// dropped. The input slice is not modified.
func Filter(records []Record, c Criteria, now time.Time) []Record {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	eligibility := strings.ToLower(strings.TrimSpace(c.Eligibility))

	out := make([]Record, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !r.Valid() {
			dropped++
			continue
		}
		if c.Center != nil && r.Location != nil {
			r.Distance = DistanceKm(*c.Center, *r.Location)
		}

		if query != "" && !matchesQuery(r, query) {
			continue
		}
		if !exactFold(c.Category, r.Category) {
			continue
		}
		if eligibility != "" && !anyContains(r.Eligibility, eligibility) {
			continue
		}
		if !exactFold(c.Level, r.Level) || !exactFold(c.Type, r.Type) || !exactFold(c.Stream, r.Stream) {
			continue
		}
		if c.MinFitScore > 0 && r.FitScore < c.MinFitScore {
			continue
		}
		if c.RadiusKm > 0 && !insideRadius(r, c) {
			continue
		}
		if c.WithinDays != nil && !deadlineWithin(r.Deadline, *c.WithinDays, now) {
			continue
		}
		out = append(out, r)
	}

	if dropped > 0 {
		slog.Debug("dropped malformed catalog records", "count", dropped)
	}
	return out
}

func matchesQuery(r Record, query string) bool {
	for _, f := range r.searchFields() {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	if r.Kind == KindScholarships {
		if v := ParseAmount(r.Amount); v > 0 {
			return strings.Contains(strconv.FormatFloat(v, 'f', -1, 64), query)
		}
	}
	return false
}

func exactFold(want, got string) bool {
	want = strings.TrimSpace(want)
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(want, strings.TrimSpace(got))
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), sub) {
			return true
		}
	}
	return false
}

// insideRadius needs a distance: one computed from Location, or one the
// source supplied. Records with neither are excluded.
func insideRadius(r Record, c Criteria) bool {
	if c.Center != nil && r.Location != nil {
		return r.Distance <= c.RadiusKm
	}
	if r.Distance > 0 {
		return r.Distance <= c.RadiusKm
	}
	return false
}

func deadlineWithin(raw string, days int, now time.Time) bool {
	deadline, ok := ParseDeadline(raw, now.Location())
	if !ok {
		return false
	}
	d := DaysUntil(deadline, now)
	return d >= 0 && d <= days
}
