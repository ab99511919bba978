package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names an ordering.
type SortKey string

const (
	SortNone         SortKey = ""
	SortRelevance    SortKey = "relevance"
	SortPopularity   SortKey = "popularity"
	SortSalary       SortKey = "salary"
	SortAlphabetical SortKey = "alphabetical"
	SortFit          SortKey = "fit"
	SortStreamFit    SortKey = "stream_fit"
	SortDeadline     SortKey = "deadline"
	SortAmount       SortKey = "amount"
	SortRating       SortKey = "rating"
	SortDistance     SortKey = "distance"
)

var sortKeys = []SortKey{
	SortNone, SortRelevance, SortPopularity, SortSalary, SortAlphabetical,
	SortFit, SortStreamFit, SortDeadline, SortAmount, SortRating, SortDistance,
}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range sortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Sort returns a stably sorted copy of records. SortNone keeps input order.
func Sort(records []Record, key SortKey) []Record {
	out := slices.Clone(records)

	switch key {
	case SortRelevance:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return r.Relevance }))
	case SortPopularity:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return r.Popularity }))
	case SortSalary:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return ParseSalaryCeiling(r.Salary) }))
	case SortAlphabetical:
		col := newCollator()
		slices.SortStableFunc(out, func(a, b Record) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortFit:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return r.FitScore }))
	case SortStreamFit:
		col := newCollator()
		slices.SortStableFunc(out, func(a, b Record) int {
			if c := col.CompareString(a.Stream, b.Stream); c != 0 {
				return c
			}
			return cmp.Compare(b.FitScore, a.FitScore)
		})
	case SortDeadline:
		slices.SortStableFunc(out, func(a, b Record) int {
			return compareDeadlines(a.Deadline, b.Deadline)
		})
	case SortAmount:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return ParseAmount(r.Amount) }))
	case SortRating:
		slices.SortStableFunc(out, desc(func(r Record) float64 { return r.Rating }))
	case SortDistance:
		slices.SortStableFunc(out, func(a, b Record) int {
			return compareKnownFirst(a.Distance, a.hasDistance(), b.Distance, b.hasDistance())
		})
	}
	return out
}

// newCollator builds a case-insensitive collator. Collators are not safe for
// concurrent use, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

func desc(value func(Record) float64) func(a, b Record) int {
	return func(a, b Record) int {
		return cmp.Compare(value(b), value(a))
	}
}

// compareDeadlines orders ascending with undated records last.
func compareDeadlines(a, b string) int {
	ta, okA := ParseDeadline(a, time.UTC)
	tb, okB := ParseDeadline(b, time.UTC)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}

func compareKnownFirst(a float64, okA bool, b float64, okB bool) int {
	switch {
	case okA && okB:
		return cmp.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}

func (r Record) hasDistance() bool {
	return r.Location != nil || r.Distance > 0
}
