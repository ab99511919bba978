package catalog_test

import (
	"testing"

	"github.com/p-n-ai/careercompass/internal/catalog"
)

func names(records []catalog.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestSort_AlphabeticalCaseInsensitive(t *testing.T) {
	records := []catalog.Record{{ID: "1", Name: "banana"}, {ID: "2", Name: "Apple"}}

	got := catalog.Sort(records, catalog.SortAlphabetical)
	if n := names(got); n[0] != "Apple" || n[1] != "banana" {
		t.Errorf("Sort() = %v, want [Apple banana]", n)
	}
	if records[0].Name != "banana" {
		t.Error("Sort must not reorder its input")
	}
}

func TestSort_Numeric(t *testing.T) {
	records := []catalog.Record{
		{ID: "a", Name: "A", Relevance: 1, Popularity: 30, FitScore: 50, Rating: 4.1},
		{ID: "b", Name: "B", Relevance: 9, Popularity: 10, Rating: 4.9},
		{ID: "c", Name: "C", Relevance: 5, Popularity: 20, FitScore: 90},
	}

	tests := []struct {
		key  catalog.SortKey
		want []string
	}{
		{catalog.SortRelevance, []string{"b", "c", "a"}},
		{catalog.SortPopularity, []string{"a", "c", "b"}},
		{catalog.SortFit, []string{"c", "a", "b"}},
		{catalog.SortRating, []string{"b", "a", "c"}},
		{catalog.SortNone, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := catalog.Sort(records, tt.key)
			if !equalIDs(got, tt.want...) {
				t.Errorf("Sort(%s) = %v, want %v", tt.key, ids(got), tt.want)
			}
		})
	}
}

func TestSort_StableOnTies(t *testing.T) {
	records := []catalog.Record{
		{ID: "first", Name: "X", FitScore: 70},
		{ID: "second", Name: "Y", FitScore: 70},
		{ID: "top", Name: "Z", FitScore: 90},
		{ID: "third", Name: "W", FitScore: 70},
	}
	got := catalog.Sort(records, catalog.SortFit)
	if !equalIDs(got, "top", "first", "second", "third") {
		t.Errorf("Sort() = %v", ids(got))
	}
}

func TestSort_Salary(t *testing.T) {
	records := []catalog.Record{
		{ID: "mid", Name: "Mid", Salary: "₹7-20 LPA"},
		{ID: "none", Name: "None"},
		{ID: "top", Name: "Top", Salary: "₹8 - 25 LPA"},
		{ID: "monthly", Name: "Monthly", Salary: "₹25,000 - ₹40,000 per month"},
	}
	got := catalog.Sort(records, catalog.SortSalary)
	if !equalIDs(got, "top", "mid", "monthly", "none") {
		t.Errorf("Sort(salary) = %v", ids(got))
	}
}

func TestSort_StreamThenFit(t *testing.T) {
	records := []catalog.Record{
		{ID: "sci-lo", Name: "1", Stream: "Science", FitScore: 40},
		{ID: "arts", Name: "2", Stream: "arts", FitScore: 10},
		{ID: "sci-hi", Name: "3", Stream: "Science", FitScore: 95},
		{ID: "com", Name: "4", Stream: "Commerce", FitScore: 70},
	}
	got := catalog.Sort(records, catalog.SortStreamFit)
	if !equalIDs(got, "arts", "com", "sci-hi", "sci-lo") {
		t.Errorf("Sort(stream_fit) = %v", ids(got))
	}
}

func TestSort_DeadlineUndatedLast(t *testing.T) {
	records := []catalog.Record{
		{ID: "none", Name: "None"},
		{ID: "late", Name: "Late", Deadline: "2027-01-10"},
		{ID: "bad", Name: "Bad", Deadline: "rolling"},
		{ID: "early", Name: "Early", Deadline: "15 Nov 2026"},
	}
	got := catalog.Sort(records, catalog.SortDeadline)
	if !equalIDs(got, "early", "late", "none", "bad") {
		t.Errorf("Sort(deadline) = %v", ids(got))
	}
}

func TestSort_AmountAndDistance(t *testing.T) {
	records := []catalog.Record{
		{ID: "k", Name: "K", Amount: "50k", Distance: 30},
		{ID: "lakh", Name: "L", Amount: "1.2 lakh"},
		{ID: "rupees", Name: "R", Amount: "₹75,000", Distance: 5},
	}

	if got := catalog.Sort(records, catalog.SortAmount); !equalIDs(got, "lakh", "rupees", "k") {
		t.Errorf("Sort(amount) = %v", ids(got))
	}
	if got := catalog.Sort(records, catalog.SortDistance); !equalIDs(got, "rupees", "k", "lakh") {
		t.Errorf("Sort(distance) = %v", ids(got))
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := catalog.ParseSortKey("stream_fit"); err != nil || k != catalog.SortStreamFit {
		t.Errorf("ParseSortKey() = %q, %v", k, err)
	}
	if _, err := catalog.ParseSortKey("random"); err == nil {
		t.Error("unknown key should fail")
	}
}
