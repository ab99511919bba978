package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/p-n-ai/careercompass/internal/platform/clock"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
)

// ErrSuperseded is returned to a List call whose fetch was replaced by a
// newer call for the same scope.
var ErrSuperseded = errors.New("catalog: request superseded")

// Request describes one list call.
type Request struct {
	// Scope groups calls that replace each other, e.g. one user's
	// scholarship browser.
	Scope    string
	Kind     Kind
	Params   url.Values
	Criteria Criteria
	Sort     SortKey
}

// Service fetches, filters and sorts catalog records.
type Service struct {
	source  Source
	clock   clock.Clock
	metrics *metrics.Metrics

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflight
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewService creates a catalog service.
func NewService(source Source, clk clock.Clock, m *metrics.Metrics) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		source:   source,
		clock:    clk,
		metrics:  m,
		inflight: make(map[string]inflight),
	}
}

// List fetches req.Kind and returns the filtered, sorted view. A newer List
// for the same non-empty scope cancels this one, which then returns
// ErrSuperseded.
func (s *Service) List(ctx context.Context, req Request) ([]Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seq := s.begin(req.Scope, cancel)
	defer s.end(req.Scope, seq)

	records, err := s.source.Fetch(ctx, req.Kind, req.Params)
	if !s.current(req.Scope, seq) {
		s.metrics.Catalog(string(req.Kind), "superseded")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.metrics.Catalog(string(req.Kind), "error")
		return nil, fmt.Errorf("fetch %s: %w", req.Kind, err)
	}

	out := Sort(Filter(records, req.Criteria, s.clock.Now()), req.Sort)
	s.metrics.Catalog(string(req.Kind), "ok")
	return out, nil
}

func (s *Service) begin(scope string, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if scope == "" {
		return s.seq
	}
	if prev, ok := s.inflight[scope]; ok {
		prev.cancel()
	}
	s.inflight[scope] = inflight{seq: s.seq, cancel: cancel}
	return s.seq
}

func (s *Service) current(scope string, seq uint64) bool {
	if scope == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.inflight[scope]
	return ok && cur.seq == seq
}

func (s *Service) end(scope string, seq uint64) {
	if scope == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.inflight[scope]; ok && cur.seq == seq {
		delete(s.inflight, scope)
	}
}
