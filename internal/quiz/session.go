// Package quiz runs the aptitude quiz: the answer state machine, the
// countdown timer and stream scoring.
package quiz

import (
	"errors"
	"time"
)

// Phase is a quiz session state.
type Phase string

const (
	PhaseQuiz       Phase = "quiz"
	PhaseReview     Phase = "review"
	PhaseSubmitting Phase = "submitting"
	PhaseResult     Phase = "result"
)

var (
	ErrWrongPhase      = errors.New("quiz: action not allowed in current phase")
	ErrUnknownQuestion = errors.New("quiz: unknown question")
	ErrInvalidOption   = errors.New("quiz: option is not valid for question")
	ErrUnanswered      = errors.New("quiz: current question must be answered first")
	ErrOutOfRange      = errors.New("quiz: question index out of range")
)

// Policy configures timing and navigation rules.
type Policy struct {
	// Duration is the countdown length. Zero disables the timer.
	Duration   time.Duration
	AllowSkip  bool
	AutoSubmit bool
}

// Session is one quiz attempt. It is not safe for concurrent use; Manager
// serializes access.
type Session struct {
	ID     string
	UserID string

	bank      *Bank
	policy    Policy
	phase     Phase
	cursor    int
	answers   AnswerMap
	remaining time.Duration
	result    *Result
	lastErr   string
	attempt   int
}

// NewSession starts a session in the quiz phase with a full timer.
func NewSession(id, userID string, bank *Bank, policy Policy) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		bank:      bank,
		policy:    policy,
		phase:     PhaseQuiz,
		answers:   AnswerMap{},
		remaining: policy.Duration,
		attempt:   1,
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Cursor returns the index of the current question.
func (s *Session) Cursor() int { return s.cursor }

// Answers returns a copy of the answer map.
func (s *Session) Answers() AnswerMap { return s.answers.clone() }

// Remaining returns the time left on the countdown.
func (s *Session) Remaining() time.Duration { return s.remaining }

// Result returns the stored result, if any.
func (s *Session) Result() *Result { return s.result }

// Answer records value for questionID. Only allowed in the quiz phase.
func (s *Session) Answer(questionID, value string) error {
	if s.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	q, ok := s.bank.Question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.HasValue(value) {
		return ErrInvalidOption
	}
	s.answers[questionID] = value
	s.lastErr = ""
	return nil
}

// Next moves the cursor forward. It stays on the last question.
func (s *Session) Next() error {
	if s.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	if !s.policy.AllowSkip {
		current := s.bank.questions[s.cursor]
		if _, ok := s.answers[current.ID]; !ok {
			return ErrUnanswered
		}
	}
	if s.cursor < s.bank.Len()-1 {
		s.cursor++
	}
	return nil
}

// Prev moves the cursor back. It stays on the first question.
func (s *Session) Prev() error {
	if s.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	if s.cursor > 0 {
		s.cursor--
	}
	return nil
}

// Review freezes editing and shows the summary view.
func (s *Session) Review() error {
	if s.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	s.phase = PhaseReview
	return nil
}

// Edit returns from review to the quiz at question index. Not allowed once
// the timer has run out.
func (s *Session) Edit(index int) error {
	if s.phase != PhaseReview || s.expired() {
		return ErrWrongPhase
	}
	if index < 0 || index >= s.bank.Len() {
		return ErrOutOfRange
	}
	s.cursor = index
	s.phase = PhaseQuiz
	return nil
}

// Submission is a snapshot handed to the scorer.
type Submission struct {
	Attempt   int
	Questions []Question
	Answers   AnswerMap
}

// BeginSubmit moves review to submitting and returns what to score.
func (s *Session) BeginSubmit() (Submission, error) {
	if s.phase != PhaseReview {
		return Submission{}, ErrWrongPhase
	}
	s.phase = PhaseSubmitting
	s.lastErr = ""
	return Submission{
		Attempt:   s.attempt,
		Questions: s.bank.Questions(),
		Answers:   s.answers.clone(),
	}, nil
}

// CompleteSubmit applies a scoring outcome. Outcomes for an older attempt or
// arriving outside the submitting phase are discarded and false is returned.
// On failure the session returns to review with its answers intact.
func (s *Session) CompleteSubmit(attempt int, res Result, err error) bool {
	if attempt != s.attempt || s.phase != PhaseSubmitting {
		return false
	}
	if err != nil {
		s.phase = PhaseReview
		s.lastErr = err.Error()
		return true
	}
	s.result = &res
	s.phase = PhaseResult
	return true
}

// Retake clears all progress and restarts the quiz from any phase.
func (s *Session) Retake() {
	s.answers = AnswerMap{}
	s.cursor = 0
	s.remaining = s.policy.Duration
	s.result = nil
	s.lastErr = ""
	s.attempt++
	s.phase = PhaseQuiz
}

// Tick advances the countdown by d. It returns true exactly once, on the tick
// that runs the timer out; the session is then in review.
func (s *Session) Tick(d time.Duration) bool {
	if s.policy.Duration <= 0 || s.remaining <= 0 {
		return false
	}
	if s.phase != PhaseQuiz && s.phase != PhaseReview {
		return false
	}

	s.remaining -= d
	if s.remaining > 0 {
		return false
	}
	s.remaining = 0
	s.phase = PhaseReview
	return true
}

func (s *Session) expired() bool {
	return s.policy.Duration > 0 && s.remaining <= 0
}

// View is a serializable snapshot of a session.
type View struct {
	ID               string    `json:"id"`
	Phase            Phase     `json:"phase"`
	Cursor           int       `json:"cursor"`
	Total            int       `json:"total"`
	Current          *Question `json:"current,omitempty"`
	Answers          AnswerMap `json:"answers"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Timed            bool      `json:"timed"`
	Result           *Result   `json:"result,omitempty"`
	Error            string    `json:"error,omitempty"`
	Attempt          int       `json:"attempt"`
}

// View snapshots the session.
func (s *Session) View() View {
	v := View{
		ID:               s.ID,
		Phase:            s.phase,
		Cursor:           s.cursor,
		Total:            s.bank.Len(),
		Answers:          s.answers.clone(),
		RemainingSeconds: int((s.remaining + time.Second - 1) / time.Second),
		Timed:            s.policy.Duration > 0,
		Error:            s.lastErr,
		Attempt:          s.attempt,
	}
	if s.phase == PhaseQuiz {
		q := s.bank.questions[s.cursor]
		v.Current = &q
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}
