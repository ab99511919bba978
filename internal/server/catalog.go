package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/p-n-ai/careercompass/internal/catalog"
)

// criteriaParams are consumed by the filter; every other query parameter is
// passed through to the catalog source.
var criteriaParams = map[string]bool{
	"q": true, "category": true, "eligibility": true, "level": true, "type": true,
	"stream": true, "minFit": true, "lat": true, "lng": true, "radius": true,
	"within": true, "sort": true, "scope": true,
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	q := r.URL.Query()
	req, err := catalogRequest(kind, q)
	if err != nil {
		writeError(w, badRequest{err: err})
		return
	}

	records, err := s.deps.Catalog.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []catalog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "count": len(records), "records": records})
}

func catalogRequest(kind catalog.Kind, q url.Values) (catalog.Request, error) {
	c := catalog.Criteria{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Eligibility: q.Get("eligibility"),
		Level:       q.Get("level"),
		Type:        q.Get("type"),
		Stream:      q.Get("stream"),
	}

	var err error
	if v := q.Get("minFit"); v != "" {
		if c.MinFitScore, err = strconv.ParseFloat(v, 64); err != nil {
			return catalog.Request{}, fmt.Errorf("invalid minFit %q", v)
		}
	}
	if lat, lng := q.Get("lat"), q.Get("lng"); lat != "" || lng != "" {
		var p catalog.GeoPoint
		if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return catalog.Request{}, fmt.Errorf("invalid lat %q", lat)
		}
		if p.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return catalog.Request{}, fmt.Errorf("invalid lng %q", lng)
		}
		c.Center = &p
	}
	if v := q.Get("radius"); v != "" {
		if c.RadiusKm, err = strconv.ParseFloat(v, 64); err != nil || c.RadiusKm < 0 {
			return catalog.Request{}, fmt.Errorf("invalid radius %q", v)
		}
	}
	if v := q.Get("within"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return catalog.Request{}, fmt.Errorf("invalid within %q", v)
		}
		c.WithinDays = catalog.Within(days)
	}

	sortKey, err := catalog.ParseSortKey(q.Get("sort"))
	if err != nil {
		return catalog.Request{}, err
	}

	params := url.Values{}
	for k, vs := range q {
		if !criteriaParams[k] {
			params[k] = vs
		}
	}

	scope := q.Get("scope")
	if scope != "" {
		scope = strings.Join([]string{scope, string(kind)}, ":")
	}

	return catalog.Request{
		Scope:    scope,
		Kind:     kind,
		Params:   params,
		Criteria: c,
		Sort:     sortKey,
	}, nil
}
