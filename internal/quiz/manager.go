package quiz

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/careercompass/internal/activity"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("quiz: session not found")

const scoreTimeout = 30 * time.Second

// Manager owns the live quiz sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	// idle is the ticked time since each session was last touched.
	idle     map[string]time.Duration
	idleTTL  time.Duration

	bank    *Bank
	policy  Policy
	scorer  Scorer
	events  activity.Logger
	metrics *metrics.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEvents sets the analytics logger.
func WithEvents(l activity.Logger) ManagerOption {
	return func(m *Manager) { m.events = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithIdleTTL evicts sessions left untouched for longer than ttl. Zero keeps
// sessions until they are removed.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = ttl }
}

// NewManager creates a session manager.
func NewManager(bank *Bank, policy Policy, scorer Scorer, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		idle:     make(map[string]time.Duration),
		bank:     bank,
		policy:   policy,
		scorer:   scorer,
		events:   activity.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bank returns the question bank sessions are built from.
func (m *Manager) Bank() *Bank {
	return m.bank
}

// Start creates a new session for userID.
func (m *Manager) Start(userID string) View {
	s := NewSession(uuid.NewString(), userID, m.bank, m.policy)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.idle[s.ID] = 0
	m.mu.Unlock()

	slog.Debug("quiz session started", "session_id", s.ID, "user_id", userID)
	return s.View()
}

// Get returns the current view of a session.
func (m *Manager) Get(id string) (View, error) {
	return m.with(id, func(*Session) error { return nil })
}

// Answer records an answer.
func (m *Manager) Answer(id, questionID, value string) (View, error) {
	return m.with(id, func(s *Session) error { return s.Answer(questionID, value) })
}

// Next advances the cursor.
func (m *Manager) Next(id string) (View, error) {
	return m.with(id, (*Session).Next)
}

// Prev moves the cursor back.
func (m *Manager) Prev(id string) (View, error) {
	return m.with(id, (*Session).Prev)
}

// Review enters the review phase.
func (m *Manager) Review(id string) (View, error) {
	return m.with(id, (*Session).Review)
}

// Edit returns from review to the question at index.
func (m *Manager) Edit(id string, index int) (View, error) {
	return m.with(id, func(s *Session) error { return s.Edit(index) })
}

// Retake resets the session.
func (m *Manager) Retake(id string) (View, error) {
	return m.with(id, func(s *Session) error {
		s.Retake()
		return nil
	})
}

// Remove discards a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	m.drop(id)
	return nil
}

// drop deletes a session. The caller holds m.mu.
func (m *Manager) drop(id string) {
	delete(m.sessions, id)
	delete(m.idle, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) with(id string, fn func(*Session) error) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return View{}, ErrSessionNotFound
	}
	m.idle[id] = 0
	if err := fn(s); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

// Submit scores the session's answers. The scorer runs without holding the
// manager lock; if the session is retaken meanwhile the outcome is dropped.
// A scoring failure is not returned as an error: the session goes back to
// review and the view carries the message.
func (m *Manager) Submit(ctx context.Context, id string) (View, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return View{}, ErrSessionNotFound
	}
	m.idle[id] = 0
	sub, err := s.BeginSubmit()
	if err != nil {
		v := s.View()
		m.mu.Unlock()
		return v, err
	}
	userID := s.UserID
	m.mu.Unlock()

	scoreCtx, cancel := context.WithTimeout(ctx, scoreTimeout)
	res, scoreErr := m.scorer.Score(scoreCtx, sub.Questions, sub.Answers)
	cancel()

	m.mu.Lock()
	applied := s.CompleteSubmit(sub.Attempt, res, scoreErr)
	v := s.View()
	m.mu.Unlock()

	switch {
	case !applied:
		m.metrics.Quiz("discarded")
		slog.Info("stale quiz result discarded", "session_id", id, "attempt", sub.Attempt)
	case scoreErr != nil:
		m.metrics.Quiz("error")
		slog.Warn("quiz scoring failed", "session_id", id, "error", scoreErr)
		activity.Emit(ctx, m.events, activity.Event{
			UserID: userID,
			Type:   activity.QuizScoreFailed,
			Data:   map[string]any{"session_id": id, "error": scoreErr.Error()},
		})
	default:
		m.metrics.Quiz("success")
		activity.Emit(ctx, m.events, activity.Event{
			UserID: userID,
			Type:   activity.QuizSubmitted,
			Data: map[string]any{
				"session_id":  id,
				"answered":    len(sub.Answers),
				"recommended": res.Recommended,
				"source":      res.Source,
			},
		})
	}
	return v, nil
}

// TickAll advances every session's countdown by d. Sessions whose timer runs
// out are auto-submitted when the policy asks for it. Sessions idle past the
// TTL are evicted, except while a submission is being scored.
func (m *Manager) TickAll(ctx context.Context, d time.Duration) {
	var expired []string

	m.mu.Lock()
	for id, s := range m.sessions {
		m.idle[id] += d
		if m.idleTTL > 0 && m.idle[id] > m.idleTTL && s.Phase() != PhaseSubmitting {
			m.drop(id)
			slog.Debug("idle quiz session evicted", "session_id", id, "phase", s.Phase())
			continue
		}
		if s.Tick(d) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	if !m.policy.AutoSubmit {
		return
	}
	for _, id := range expired {
		slog.Info("quiz timer expired, auto-submitting", "session_id", id)
		if _, err := m.Submit(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			slog.Warn("auto-submit failed", "session_id", id, "error", err)
		}
	}
}

// Run drives TickAll from ticks, stepping step per tick, until ctx is done.
func (m *Manager) Run(ctx context.Context, ticks <-chan time.Time, step time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			m.TickAll(ctx, step)
		}
	}
}

// Score runs the configured scorer on a stateless answer set.
func (m *Manager) Score(ctx context.Context, answers AnswerMap) (Result, error) {
	filtered := AnswerMap{}
	for id, v := range answers {
		q, ok := m.bank.Question(id)
		if !ok {
			return Result{}, ErrUnknownQuestion
		}
		if !q.HasValue(v) {
			return Result{}, ErrInvalidOption
		}
		filtered[id] = v
	}
	return m.scorer.Score(ctx, m.bank.Questions(), filtered)
}
