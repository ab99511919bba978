// Package activity records analytics events for quiz, tracker and chat actions.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	QuizSubmitted       = "quiz_submitted"
	QuizScoreFailed     = "quiz_score_failed"
	TrackerSaved        = "tracker_saved"
	TrackerUnsaved      = "tracker_unsaved"
	TrackerStatus       = "tracker_status_changed"
	TrackerReminder     = "tracker_reminder_set"
	FavoriteToggled     = "favorite_toggled"
	ChatMessageSent     = "chat_message_sent"
	ChatReplyFailed     = "chat_reply_failed"
	ChatConversationNew = "chat_conversation_created"
)

// Event is one analytics record.
type Event struct {
	UserID    string
	Type      string
	Data      map[string]any
	CreatedAt time.Time
}

// Logger records events.
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// Emit logs event and downgrades any failure to a warning. Analytics never
// block the action that produced them.
func Emit(ctx context.Context, l Logger, event Event) {
	if l == nil {
		return
	}
	if err := l.Log(ctx, event); err != nil {
		slog.Warn("activity event dropped", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}

// Nop ignores all events.
type Nop struct{}

func (Nop) Log(context.Context, Event) error {
	return nil
}

// Memory keeps events in memory for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{events: []Event{}}
}

func (l *Memory) Log(_ context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *Memory) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// OfType returns the recorded events with the given type.
func (l *Memory) OfType(eventType string) []Event {
	var out []Event
	for _, e := range l.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// PostgresLogger inserts events into the events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) Log(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.UserID,
		event.Type,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.Type, "user_id", event.UserID)
	return nil
}
