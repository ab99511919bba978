package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/careercompass/internal/catalog"
)

const scholarshipFeed = `[
  {"_id": 17, "title": "Merit Award", "field": "Merit", "amount": 50000, "lastDate": "2026-11-30",
   "requiredDocuments": ["Mark sheet", "ID proof"], "eligibility": "Class 12 pass; Income below ₹2,50,000",
   "matchScore": 82, "location": {"lat": 19.07, "lng": 72.87, "city": "Mumbai"}},
  {"id": "s2", "name": "Broken Score", "fitScore": "very high"},
  {"id": "s3", "name": "Out of range", "fitScore": 140},
  "not an object",
  {"id": "s4", "name": "Plain", "amount": "₹20,000", "latitude": 12.9, "longitude": 77.6}
]`

func TestHTTPSource_NormalizesAndValidates(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(scholarshipFeed))
	}))
	defer srv.Close()

	src, err := catalog.NewHTTPSource(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	records, err := src.Fetch(context.Background(), catalog.KindScholarships, url.Values{"userId": {"u1"}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/api/scholarships" || gotQuery != "userId=u1" {
		t.Errorf("request = %s?%s", gotPath, gotQuery)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (invalid shapes dropped)", len(records))
	}

	r := records[0]
	if r.ID != "17" || r.Name != "Merit Award" || r.Category != "Merit" {
		t.Errorf("aliases not resolved: %+v", r)
	}
	if r.Kind != catalog.KindScholarships {
		t.Errorf("Kind = %q", r.Kind)
	}
	if r.Amount != "50000" || catalog.ParseAmount(r.Amount) != 50000 {
		t.Errorf("Amount = %q", r.Amount)
	}
	if r.Deadline != "2026-11-30" || r.FitScore != 82 {
		t.Errorf("Deadline = %q, FitScore = %v", r.Deadline, r.FitScore)
	}
	if len(r.Documents) != 2 || len(r.Eligibility) != 2 || r.Eligibility[1] != "Income below ₹2,50,000" {
		t.Errorf("Documents = %v, Eligibility = %v", r.Documents, r.Eligibility)
	}
	if r.Location == nil || r.City != "Mumbai" {
		t.Errorf("Location = %v, City = %q", r.Location, r.City)
	}
	if records[1].Location == nil || records[1].Location.Lat != 12.9 {
		t.Errorf("flat lat/lng not read: %+v", records[1].Location)
	}
}

func TestHTTPSource_WrappedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id": "c1", "name": "College"}]}`))
	}))
	defer srv.Close()

	src, _ := catalog.NewHTTPSource(srv.URL)
	records, err := src.Fetch(context.Background(), catalog.KindColleges, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "c1" {
		t.Errorf("records = %+v", records)
	}
}

func TestHTTPSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, "upstream down"},
		{"not json", http.StatusOK, "<html>"},
		{"no list", http.StatusOK, `{"message": "ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src, _ := catalog.NewHTTPSource(srv.URL)
			if _, err := src.Fetch(context.Background(), catalog.KindCareers, nil); err == nil {
				t.Error("Fetch() should fail")
			}
		})
	}

	if _, err := catalog.NewHTTPSource(""); err == nil {
		t.Error("NewHTTPSource(\"\") should fail")
	}
}

func TestStaticSource_EmbeddedSeed(t *testing.T) {
	src, err := catalog.NewStaticSource("")
	if err != nil {
		t.Fatalf("NewStaticSource() error = %v", err)
	}

	for _, kind := range catalog.Kinds {
		records, _ := src.Fetch(context.Background(), kind, nil)
		if len(records) == 0 {
			t.Errorf("no seed records for %s", kind)
		}
		for _, r := range records {
			if !r.Valid() {
				t.Errorf("%s seed record invalid: %+v", kind, r)
			}
			if r.Kind != kind {
				t.Errorf("record %s kind = %q, want %q", r.ID, r.Kind, kind)
			}
		}
	}
}

func TestStaticSource_Directory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yaml", "kind: skills\nrecords:\n  - {id: s1, name: Go}\n")
	write("b.yaml", "kind: spaceships\nrecords:\n  - {id: x, name: X}\n")
	write("c.yaml", "kind: [broken")

	src, err := catalog.NewStaticSource(dir)
	if err != nil {
		t.Fatalf("NewStaticSource() error = %v", err)
	}
	records, _ := src.Fetch(context.Background(), catalog.KindSkills, nil)
	if len(records) != 1 || records[0].Name != "Go" {
		t.Errorf("records = %+v", records)
	}
}

type countingSource struct {
	calls   atomic.Int32
	records []catalog.Record
	err     error
}

func (c *countingSource) Fetch(context.Context, catalog.Kind, url.Values) ([]catalog.Record, error) {
	c.calls.Add(1)
	return c.records, c.err
}

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingSource{records: []catalog.Record{{ID: "1", Name: "One"}}}
	src := catalog.NewCachedSource(inner, client, time.Minute)
	ctx := context.Background()
	params := url.Values{"lat": {"19.0"}}

	for i := 0; i < 3; i++ {
		records, err := src.Fetch(ctx, catalog.KindColleges, params)
		if err != nil || len(records) != 1 {
			t.Fatalf("Fetch() = %v, %v", records, err)
		}
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls.Load())
	}

	if _, err := src.Fetch(ctx, catalog.KindColleges, url.Values{"lat": {"20.0"}}); err != nil {
		t.Fatal(err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("different params should miss, calls = %d", inner.calls.Load())
	}

	mr.FastForward(2 * time.Minute)
	_, _ = src.Fetch(ctx, catalog.KindColleges, params)
	if inner.calls.Load() != 3 {
		t.Errorf("expired entry should refetch, calls = %d", inner.calls.Load())
	}
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	inner := &countingSource{records: []catalog.Record{{ID: "1", Name: "One"}}}
	records, err := catalog.NewCachedSource(inner, client, time.Minute).Fetch(context.Background(), catalog.KindSkills, nil)
	if err != nil || len(records) != 1 {
		t.Errorf("Fetch() = %v, %v", records, err)
	}
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingSource{err: errors.New("boom")}
	src := catalog.NewCachedSource(inner, client, time.Minute)
	_, _ = src.Fetch(context.Background(), catalog.KindSkills, nil)
	_, _ = src.Fetch(context.Background(), catalog.KindSkills, nil)
	if inner.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", inner.calls.Load())
	}
}
