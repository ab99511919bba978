package quiz

import (
	"encoding/json"
	"strings"
)

// Stream is a broad academic track.
type Stream string

const (
	Arts       Stream = "Arts"
	Science    Stream = "Science"
	Commerce   Stream = "Commerce"
	Vocational Stream = "Vocational"
)

// Streams lists every stream in tie-break order.
var Streams = []Stream{Arts, Science, Commerce, Vocational}

// ParseStream matches name case-insensitively against the known streams.
func ParseStream(name string) (Stream, bool) {
	name = strings.TrimSpace(name)
	for _, s := range Streams {
		if strings.EqualFold(string(s), name) {
			return s, true
		}
	}
	return "", false
}

// Option is one selectable answer.
type Option struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Question is a single aptitude question.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []Option `yaml:"options" json:"options"`
}

// HasValue reports whether value is one of the question's option values.
func (q Question) HasValue(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// AnswerMap maps question id to the selected option value.
type AnswerMap map[string]string

func (a AnswerMap) clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// StreamScore holds one non-negative score per stream.
type StreamScore map[Stream]float64

// NewStreamScore returns a score with every stream present at zero.
func NewStreamScore() StreamScore {
	s := make(StreamScore, len(Streams))
	for _, st := range Streams {
		s[st] = 0
	}
	return s
}

// Ranked returns the streams ordered by score descending. Equal scores keep
// the order of Streams.
func (s StreamScore) Ranked() []Stream {
	out := append([]Stream(nil), Streams...)
	// insertion sort keeps ties in declaration order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && s[out[j]] > s[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Top returns up to n highest-scoring streams with a positive score. The
// slice is never nil.
func (s StreamScore) Top(n int) []Stream {
	out := []Stream{}
	for _, st := range s.Ranked() {
		if len(out) == n || s[st] <= 0 {
			break
		}
		out = append(out, st)
	}
	return out
}

// Recommendation describes one recommended stream.
type Recommendation struct {
	Stream      Stream   `json:"stream"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
	Careers     []string `json:"careers"`
	Rationale   string   `json:"rationale,omitempty"`
}

// Result is the outcome of scoring an answer set.
type Result struct {
	Scores          StreamScore      `json:"scores"`
	Recommended     []Stream         `json:"recommended"`
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Source          string           `json:"source"`
}

// MarshalJSON always emits all four streams.
func (s StreamScore) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(Streams))
	for _, st := range Streams {
		out[string(st)] = s[st]
	}
	return json.Marshal(out)
}

// Profile is static guidance attached to a stream.
type Profile struct {
	Description string
	Careers     []string
}

// Profiles describes each stream for locally computed recommendations.
var Profiles = map[Stream]Profile{
	Arts: {
		Description: "Humanities, languages and creative disciplines.",
		Careers:     []string{"Journalist", "Designer", "Psychologist", "Lawyer"},
	},
	Science: {
		Description: "Physics, chemistry, biology and mathematics.",
		Careers:     []string{"Engineer", "Doctor", "Data Scientist", "Researcher"},
	},
	Commerce: {
		Description: "Accounting, economics and business studies.",
		Careers:     []string{"Chartered Accountant", "Financial Analyst", "Entrepreneur", "Banker"},
	},
	Vocational: {
		Description: "Hands-on skills and applied trades.",
		Careers:     []string{"Electrician", "Chef", "Technician", "Automotive Mechanic"},
	},
}

// Summarize builds the one-sentence result summary for the top streams.
func Summarize(top []Stream) string {
	switch len(top) {
	case 0:
		return "Answer a few questions to discover the stream that suits you."
	case 1:
		return "Your answers point most strongly towards " + string(top[0]) + "."
	default:
		return "Your answers point most strongly towards " + string(top[0]) +
			", followed by " + string(top[1]) + "."
	}
}
