package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Source fetches the raw records of one kind.
type Source interface {
	Fetch(ctx context.Context, kind Kind, params url.Values) ([]Record, error)
}

// recordSchema rejects elements whose fields have the wrong shape. Field
// aliases are resolved after validation.
const recordSchema = `{
  "type": "object",
  "properties": {
    "id":          {"type": ["string", "integer"]},
    "_id":         {"type": ["string", "integer"]},
    "name":        {"type": "string"},
    "title":       {"type": "string"},
    "amount":      {"type": ["string", "number"]},
    "fitScore":    {"type": "number", "minimum": 0, "maximum": 100},
    "fit_score":   {"type": "number", "minimum": 0, "maximum": 100},
    "matchScore":  {"type": "number", "minimum": 0, "maximum": 100},
    "rating":      {"type": "number"},
    "popularity":  {"type": "number"},
    "relevance":   {"type": "number"},
    "distance":    {"type": "number", "minimum": 0},
    "eligibility": {"type": ["string", "array"], "items": {"type": "string"}},
    "documents":   {"type": "array", "items": {"type": "string"}},
    "requiredDocuments": {"type": "array", "items": {"type": "string"}},
    "courses":     {"type": "array"},
    "careers":     {"type": "array"},
    "skills":      {"type": "array"},
    "latitude":    {"type": "number", "minimum": -90, "maximum": 90},
    "longitude":   {"type": "number", "minimum": -180, "maximum": 180},
    "lat":         {"type": "number", "minimum": -90, "maximum": 90},
    "lng":         {"type": "number", "minimum": -180, "maximum": 180}
  }
}`

// HTTPSource reads records from the catalog API: GET {base}/{kind}.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	schema  *gojsonschema.Schema
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a source for the API at baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("catalog API URL is empty")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		schema:  schema,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, kind Kind, params url.Values) ([]Record, error) {
	u := s.baseURL + "/" + string(kind)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog api error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	elements, err := unwrapList(body, kind)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(elements))
	for i, raw := range elements {
		check, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil || !check.Valid() {
			slog.Debug("dropping catalog element with unexpected shape", "kind", kind, "index", i)
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		records = append(records, Normalize(kind, m))
	}
	return records, nil
}

// unwrapList accepts a bare array or an object wrapping one under a common key.
func unwrapList(body []byte, kind Kind) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	for _, key := range []string{string(kind), "data", "items", "results", "recommendations"} {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}
	return nil, fmt.Errorf("response holds no %s list", kind)
}

// Normalize maps a loosely-shaped element onto a Record, resolving the field
// aliases different feeds use.
func Normalize(kind Kind, m map[string]any) Record {
	r := Record{
		ID:          firstString(m, "id", "_id", "slug"),
		Kind:        kind,
		Name:        firstString(m, "name", "title"),
		Category:    firstString(m, "category", "field", "domain"),
		Stream:      firstString(m, "stream"),
		Level:       firstString(m, "level", "courseLevel", "course_level"),
		Type:        firstString(m, "type", "collegeType", "college_type"),
		Provider:    firstString(m, "provider", "organization", "organisation"),
		Description: firstString(m, "description", "summary", "overview"),
		URL:         firstString(m, "url", "link", "website", "applyLink"),
		Amount:      firstString(m, "amount", "award", "value"),
		Salary:      firstString(m, "salary", "salaryRange", "salary_range", "averageSalary"),
		Deadline:    firstString(m, "deadline", "lastDate", "last_date", "closingDate"),
		Relevance:   firstNumber(m, "relevance", "relevanceScore"),
		Popularity:  firstNumber(m, "popularity", "popularityScore"),
		FitScore:    firstNumber(m, "fitScore", "fit_score", "matchScore"),
		Rating:      firstNumber(m, "rating"),
		Distance:    firstNumber(m, "distance", "distanceKm"),
		Eligibility: stringList(m, "eligibility", "eligibilityCriteria"),
		Documents:   stringList(m, "documents", "requiredDocuments", "required_documents"),
		Courses:     stringList(m, "courses"),
		Careers:     stringList(m, "careers", "careerPaths"),
		Skills:      stringList(m, "skills"),
	}

	if loc, ok := m["location"].(map[string]any); ok {
		r.Location = point(loc)
		if r.City == "" {
			r.City = firstString(loc, "city", "name")
		}
	} else if s, ok := m["location"].(string); ok {
		r.City = s
	}
	if r.Location == nil {
		r.Location = point(m)
	}
	if city := firstString(m, "city"); city != "" {
		r.City = city
	}
	return r
}

func point(m map[string]any) *GeoPoint {
	lat, okLat := number(m["lat"])
	if !okLat {
		lat, okLat = number(m["latitude"])
	}
	lng, okLng := number(m["lng"])
	if !okLng {
		lng, okLng = number(m["longitude"])
	}
	if !okLat || !okLng {
		return nil
	}
	return &GeoPoint{Lat: lat, Lng: lng}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := number(m[k]); ok {
			return v
		}
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// stringList accepts an array of strings, an array of objects with a name,
// or a single semicolon or newline separated string.
func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				switch it := item.(type) {
				case string:
					if s := strings.TrimSpace(it); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					if s := firstString(it, "name", "title"); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			var out []string
			for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '\n' }) {
				if s := strings.TrimSpace(part); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
