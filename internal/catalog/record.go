// Package catalog filters and sorts recommendation records: streams, courses,
// careers, skills, scholarships and colleges.
package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies a record collection.
type Kind string

const (
	KindStreams      Kind = "streams"
	KindCourses      Kind = "courses"
	KindCareers      Kind = "careers"
	KindSkills       Kind = "skills"
	KindScholarships Kind = "scholarships"
	KindColleges     Kind = "colleges"
)

// Kinds lists every supported collection.
var Kinds = []Kind{KindStreams, KindCourses, KindCareers, KindSkills, KindScholarships, KindColleges}

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown catalog kind %q", s)
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Record is a recommendation-like catalog entry. Numeric fields default to 0
// when absent.
type Record struct {
	ID          string `json:"id" yaml:"id"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category,omitempty" yaml:"category"`
	Stream      string `json:"stream,omitempty" yaml:"stream"`
	Level       string `json:"level,omitempty" yaml:"level"`
	Type        string `json:"type,omitempty" yaml:"type"`
	Provider    string `json:"provider,omitempty" yaml:"provider"`
	City        string `json:"city,omitempty" yaml:"city"`
	Description string `json:"description,omitempty" yaml:"description"`
	URL         string `json:"url,omitempty" yaml:"url"`

	// Amount and Salary keep the source's free text; see ParseAmount and
	// ParseSalaryCeiling.
	Amount   string `json:"amount,omitempty" yaml:"amount"`
	Salary   string `json:"salary,omitempty" yaml:"salary"`
	Deadline string `json:"deadline,omitempty" yaml:"deadline"`

	Relevance  float64 `json:"relevance,omitempty" yaml:"relevance"`
	Popularity float64 `json:"popularity,omitempty" yaml:"popularity"`
	FitScore   float64 `json:"fitScore,omitempty" yaml:"fit_score"`
	Rating     float64 `json:"rating,omitempty" yaml:"rating"`
	// Distance is in kilometres. Filter fills it from Location when a
	// search centre is given.
	Distance float64   `json:"distance,omitempty" yaml:"distance"`
	Location *GeoPoint `json:"location,omitempty" yaml:"location"`

	Eligibility []string `json:"eligibility,omitempty" yaml:"eligibility"`
	Documents   []string `json:"documents,omitempty" yaml:"documents"`
	Courses     []string `json:"courses,omitempty" yaml:"courses"`
	Careers     []string `json:"careers,omitempty" yaml:"careers"`
	Skills      []string `json:"skills,omitempty" yaml:"skills"`
}

// Valid reports whether the record has the fields every view depends on.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.ID) != "" && strings.TrimSpace(r.Name) != ""
}

// searchFields returns the text the query matches against for the record's
// kind.
func (r Record) searchFields() []string {
	fields := []string{r.Name, r.Category, r.Description}
	switch r.Kind {
	case KindScholarships:
		fields = append(fields, r.Provider, r.Amount)
	case KindCourses:
		fields = append(fields, r.Stream, r.Level)
	case KindCareers:
		fields = append(fields, r.Stream, r.Salary)
		fields = append(fields, r.Skills...)
	case KindSkills:
		fields = append(fields, r.Careers...)
	case KindColleges:
		fields = append(fields, r.Type, r.City)
		fields = append(fields, r.Courses...)
	case KindStreams:
		fields = append(fields, r.Careers...)
	}
	return fields
}
