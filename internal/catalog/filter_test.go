package catalog_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/careercompass/internal/catalog"
)

var now = time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

func ids(records []catalog.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalIDs(got []catalog.Record, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestFilter_DeadlineWindow(t *testing.T) {
	records := []catalog.Record{
		{ID: "s40", Name: "Forty", Kind: catalog.KindScholarships, Deadline: day(40)},
		{ID: "s2", Name: "Two", Kind: catalog.KindScholarships, Deadline: day(2)},
		{ID: "s10", Name: "Ten", Kind: catalog.KindScholarships, Deadline: day(10)},
	}

	got := catalog.Filter(records, catalog.Criteria{WithinDays: catalog.Within(14)}, now)
	if !equalIDs(got, "s2", "s10") {
		t.Fatalf("Filter() = %v, want [s2 s10]", ids(got))
	}

	sorted := catalog.Sort(got, catalog.SortDeadline)
	if !equalIDs(sorted, "s2", "s10") {
		t.Errorf("Sort(deadline) = %v, want [s2 s10]", ids(sorted))
	}
}

func TestFilter_DeadlineTodayAndYesterday(t *testing.T) {
	records := []catalog.Record{
		{ID: "today", Name: "Today", Deadline: day(0)},
		{ID: "yesterday", Name: "Yesterday", Deadline: day(-1)},
		{ID: "undated", Name: "Undated"},
		{ID: "garbage", Name: "Garbage", Deadline: "soon"},
	}

	for _, window := range []int{0, 1, catalog.ClosingSoonDays, 365} {
		got := catalog.Filter(records, catalog.Criteria{WithinDays: catalog.Within(window)}, now)
		if !equalIDs(got, "today") {
			t.Errorf("window %d: Filter() = %v, want [today]", window, ids(got))
		}
	}
}

func TestFilter_DeadlineTimestamps(t *testing.T) {
	records := []catalog.Record{
		{ID: "later-today", Name: "A", Deadline: now.Add(3 * time.Hour).Format(time.RFC3339)},
		{ID: "an-hour-ago", Name: "B", Deadline: now.Add(-time.Hour).Format(time.RFC3339)},
		{ID: "in-7d-plus", Name: "C", Deadline: now.Add(7*24*time.Hour + time.Minute).Format(time.RFC3339)},
	}

	got := catalog.Filter(records, catalog.Criteria{WithinDays: catalog.Within(7)}, now)
	// an hour ago rounds up to day 0; 7d+1m rounds up to day 8
	if !equalIDs(got, "later-today", "an-hour-ago") {
		t.Errorf("Filter() = %v", ids(got))
	}
}

func TestFilter_DropsMalformed(t *testing.T) {
	records := []catalog.Record{
		{ID: "", Name: "No id"},
		{ID: "x", Name: "  "},
		{ID: "ok", Name: "Fine"},
	}
	got := catalog.Filter(records, catalog.Criteria{}, now)
	if !equalIDs(got, "ok") {
		t.Errorf("Filter() = %v, want [ok]", ids(got))
	}
}

func TestFilter_Query(t *testing.T) {
	records := []catalog.Record{
		{ID: "a", Kind: catalog.KindScholarships, Name: "Merit Award", Amount: "₹50,000"},
		{ID: "b", Kind: catalog.KindScholarships, Name: "Sports Grant", Description: "For state-level ATHLETES"},
		{ID: "c", Kind: catalog.KindScholarships, Name: "Arts Fund", Amount: "50k", Provider: "Culture Trust"},
		{ID: "d", Kind: catalog.KindColleges, Name: "City College", City: "Pune"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"merit", []string{"a"}},
		{"athletes", []string{"b"}},
		{"50000", []string{"a", "c"}},
		{"culture", []string{"c"}},
		{"pune", []string{"d"}},
		{"  ", []string{"a", "b", "c", "d"}},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := catalog.Filter(records, catalog.Criteria{Query: tt.query}, now)
			if !equalIDs(got, tt.want...) {
				t.Errorf("Filter(%q) = %v, want %v", tt.query, ids(got), tt.want)
			}
		})
	}
}

func TestFilter_CategoricalAreANDed(t *testing.T) {
	records := []catalog.Record{
		{ID: "1", Name: "One", Category: "Engineering", Level: "Undergraduate", Stream: "Science"},
		{ID: "2", Name: "Two", Category: "engineering", Level: "Diploma", Stream: "Vocational"},
		{ID: "3", Name: "Three", Category: "Engineering Management", Level: "Undergraduate", Stream: "Commerce"},
	}

	got := catalog.Filter(records, catalog.Criteria{Category: "ENGINEERING"}, now)
	if !equalIDs(got, "1", "2") {
		t.Errorf("category = %v, want [1 2]", ids(got))
	}

	got = catalog.Filter(records, catalog.Criteria{Category: "engineering", Level: "undergraduate"}, now)
	if !equalIDs(got, "1") {
		t.Errorf("category+level = %v, want [1]", ids(got))
	}

	got = catalog.Filter(records, catalog.Criteria{Category: "all", Stream: "commerce"}, now)
	if !equalIDs(got, "3") {
		t.Errorf("stream = %v, want [3]", ids(got))
	}
}

func TestFilter_EligibilitySubstring(t *testing.T) {
	records := []catalog.Record{
		{ID: "1", Name: "One", Eligibility: []string{"Female students", "Class 12 pass"}},
		{ID: "2", Name: "Two", Eligibility: []string{"Enrolled in ITI"}},
		{ID: "3", Name: "Three"},
	}
	got := catalog.Filter(records, catalog.Criteria{Eligibility: "female"}, now)
	if !equalIDs(got, "1") {
		t.Errorf("Filter() = %v, want [1]", ids(got))
	}
}

func TestFilter_MinFitScore(t *testing.T) {
	records := []catalog.Record{
		{ID: "hi", Name: "Hi", FitScore: 80},
		{ID: "edge", Name: "Edge", FitScore: 60},
		{ID: "lo", Name: "Lo", FitScore: 59.9},
		{ID: "none", Name: "None"},
	}
	got := catalog.Filter(records, catalog.Criteria{MinFitScore: 60}, now)
	if !equalIDs(got, "hi", "edge") {
		t.Errorf("Filter() = %v, want [hi edge]", ids(got))
	}
}

func TestFilter_Radius(t *testing.T) {
	delhi := catalog.GeoPoint{Lat: 28.6139, Lng: 77.2090}
	records := []catalog.Record{
		{ID: "near", Name: "Near", Location: &catalog.GeoPoint{Lat: 28.5450, Lng: 77.1926}},
		{ID: "far", Name: "Far", Location: &catalog.GeoPoint{Lat: 12.9716, Lng: 77.5946}},
		{ID: "supplied", Name: "Supplied", Distance: 12},
		{ID: "unknown", Name: "Unknown"},
	}

	got := catalog.Filter(records, catalog.Criteria{Center: &delhi, RadiusKm: 25}, now)
	if !equalIDs(got, "near", "supplied") {
		t.Fatalf("Filter() = %v, want [near supplied]", ids(got))
	}
	if got[0].Distance < 5 || got[0].Distance > 10 {
		t.Errorf("computed distance = %.1f km, want ~8", got[0].Distance)
	}
	if records[0].Distance != 0 {
		t.Error("Filter must not modify its input")
	}
}

func TestFilter_ResultIsSubset(t *testing.T) {
	records := []catalog.Record{
		{ID: "1", Name: "One", Category: "A"},
		{ID: "2", Name: "Two", Category: "B"},
	}
	got := catalog.Filter(records, catalog.Criteria{Category: "B"}, now)
	for _, r := range got {
		found := false
		for _, in := range records {
			if in.ID == r.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("Filter() invented record %q", r.ID)
		}
	}
}

func TestDistanceKm(t *testing.T) {
	mumbai := catalog.GeoPoint{Lat: 19.0760, Lng: 72.8777}
	pune := catalog.GeoPoint{Lat: 18.5204, Lng: 73.8567}

	d := catalog.DistanceKm(mumbai, pune)
	if d < 115 || d > 125 {
		t.Errorf("DistanceKm(Mumbai, Pune) = %.1f, want ~120", d)
	}
	if catalog.DistanceKm(pune, pune) != 0 {
		t.Error("distance to self should be 0")
	}
}
