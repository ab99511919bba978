// Package assistant is the per-user chat session store: conversations with
// an active pointer, streamed replies accumulated into drafts, compaction of
// long histories and export.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/p-n-ai/careercompass/internal/activity"
	"github.com/p-n-ai/careercompass/internal/ai"
	"github.com/p-n-ai/careercompass/internal/platform/clock"
	"github.com/p-n-ai/careercompass/internal/platform/kvstore"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
)

const (
	defaultCompactThreshold      = 40
	defaultCompactTokenThreshold = 20000 // ~20k tokens triggers compaction
	defaultKeepRecent            = 6
	replyTimeout                 = 2 * time.Minute
	replyMaxTokens               = 1024
)

// FailureReply is the content of the error-flagged message appended when the
// completion transport fails before producing any text.
const FailureReply = "Sorry, I couldn't reach the career assistant just now. Please try again in a moment."

var (
	ErrEmptyMessage         = errors.New("assistant: message is empty")
	ErrRateLimited          = errors.New("assistant: too many messages, slow down")
	ErrSuperseded           = errors.New("assistant: reply superseded by a newer message")
	ErrConversationNotFound = errors.New("assistant: conversation not found")
	ErrMessageNotFound      = errors.New("assistant: message not found")
)

const systemPrompt = `You are CareerCompass, a friendly career guidance counsellor for students in India choosing between the Arts, Science, Commerce and Vocational streams.

- Answer in the language the student writes in.
- Ground advice in concrete next steps: courses, entrance exams, scholarships, skills.
- Mention typical salary ranges in rupees only when you are reasonably sure.
- Keep replies short and conversational; ask one clarifying question when the student's goal is unclear.
- Never invent scholarship deadlines or college admission dates; suggest the student verify them.`

// Config holds dependencies for the assistant.
type Config struct {
	Provider              ai.Provider
	Store                 kvstore.Store
	Clock                 clock.Clock
	Events                activity.Logger
	Metrics               *metrics.Metrics
	RateLimitPerMinute    int // 0 disables rate limiting
	CompactThreshold      int // messages before compaction triggers (default 40)
	CompactTokenThreshold int // estimated tokens before compaction triggers (default 20000)
	KeepRecent            int // recent messages kept verbatim after compaction (default 6)
	Model                 string
}

// Assistant owns every user's chat state.
type Assistant struct {
	provider              ai.Provider
	store                 kvstore.Store
	clock                 clock.Clock
	events                activity.Logger
	metrics               *metrics.Metrics
	limit                 rate.Limit
	burst                 int
	compactThreshold      int
	compactTokenThreshold int
	keepRecent            int
	model                 string

	mu    sync.Mutex
	users map[string]*user
}

// user serializes one user's read-modify-write cycles and tracks their
// in-flight reply.
type user struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	// inflight holds the pending reply of each conversation.
	inflight map[string]*Draft
}

// New creates an assistant.
func New(cfg Config) *Assistant {
	store := cfg.Store
	if store == nil {
		store = kvstore.NewMemory()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	events := cfg.Events
	if events == nil {
		events = activity.Nop{}
	}
	threshold := cfg.CompactThreshold
	if threshold == 0 {
		threshold = defaultCompactThreshold
	}
	tokenThreshold := cfg.CompactTokenThreshold
	if tokenThreshold == 0 {
		tokenThreshold = defaultCompactTokenThreshold
	}
	keepRecent := cfg.KeepRecent
	if keepRecent == 0 {
		keepRecent = defaultKeepRecent
	}

	limit, burst := rate.Inf, 0
	if cfg.RateLimitPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RateLimitPerMinute))
		burst = cfg.RateLimitPerMinute
	}

	return &Assistant{
		provider:              cfg.Provider,
		store:                 store,
		clock:                 clk,
		events:                events,
		metrics:               cfg.Metrics,
		limit:                 limit,
		burst:                 burst,
		compactThreshold:      threshold,
		compactTokenThreshold: tokenThreshold,
		keepRecent:            keepRecent,
		model:                 cfg.Model,
		users:                 make(map[string]*user),
	}
}

func (a *Assistant) user(userID string) *user {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[userID]
	if !ok {
		u = &user{
			limiter:  rate.NewLimiter(a.limit, a.burst),
			inflight: make(map[string]*Draft),
		}
		a.users[userID] = u
	}
	return u
}

func (a *Assistant) newID() string {
	return uuid.NewString()
}

// Send appends text to the active conversation and waits for the reply.
func (a *Assistant) Send(ctx context.Context, userID, text string) (Message, error) {
	d, err := a.Stream(ctx, userID, text)
	if err != nil {
		return Message{}, err
	}
	return d.Wait(ctx)
}

// Stream appends text as a user message to the active conversation, creating
// one if none is active, and starts streaming the reply into the returned
// Draft. Any reply still in flight for the user is cancelled and discarded.
//
// The reply outlives ctx's cancellation only through Draft; cancelling ctx
// stops the stream and finalizes the draft with whatever text arrived.
func (a *Assistant) Stream(ctx context.Context, userID, text string) (*Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	u := a.user(userID)
	if !u.limiter.Allow() {
		a.metrics.Chat("rate_limited")
		return nil, ErrRateLimited
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	now := a.clock.Now()

	i := st.find(st.active)
	if i < 0 {
		st.conversations = append(st.conversations, Conversation{
			ID:        a.newID(),
			Messages:  []Message{},
			CreatedAt: now,
		})
		i = len(st.conversations) - 1
		st.active = st.conversations[i].ID
		activity.Emit(ctx, a.events, activity.Event{
			UserID: userID,
			Type:   activity.ChatConversationNew,
			Data:   map[string]any{"conversation_id": st.active},
		})
	}

	conv := &st.conversations[i]
	prompt := Message{ID: a.newID(), Role: RoleUser, Content: text, CreatedAt: now}
	conv.Messages = append(conv.Messages, prompt)
	conv.UpdatedAt = now
	if conv.Title == "" {
		conv.Title = titleFrom(text)
	}

	if err := a.saveConversations(ctx, userID, st); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	if err := a.saveActive(ctx, userID, st); err != nil {
		return nil, fmt.Errorf("save active conversation: %w", err)
	}

	if u.cancelInflight(conv.ID) {
		slog.Debug("chat reply superseded", "user_id", userID, "conversation_id", conv.ID)
	}

	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	stop := context.AfterFunc(ctx, cancel)
	d := newDraft(conv.ID, prompt, func() {
		stop()
		cancel()
	})
	u.inflight[conv.ID] = d

	snapshot := *conv
	snapshot.Messages = append([]Message(nil), conv.Messages...)

	activity.Emit(ctx, a.events, activity.Event{
		UserID: userID,
		Type:   activity.ChatMessageSent,
		Data:   map[string]any{"conversation_id": conv.ID, "length": len(text)},
	})
	slog.Info("chat message received",
		"user_id", userID,
		"conversation_id", conv.ID,
		"text_len", len(text),
	)

	go a.reply(replyCtx, userID, d, snapshot)
	return d, nil
}

// reply streams the completion into d and finalizes it.
func (a *Assistant) reply(ctx context.Context, userID string, d *Draft, conv Conversation) {
	a.maybeCompact(ctx, userID, &conv)

	messages := []ai.Message{{Role: "system", Content: systemPrompt}}
	messages = append(messages, buildContextMessages(conv)...)

	var (
		model   = a.model
		failure error
	)
	if a.provider == nil {
		failure = errors.New("no chat provider configured")
	} else {
		ch, err := a.provider.StreamComplete(ctx, ai.CompletionRequest{
			Messages:  messages,
			Model:     a.model,
			MaxTokens: replyMaxTokens,
			Task:      ai.TaskChat,
		})
		if err != nil {
			failure = err
		} else {
			for chunk := range ch {
				if chunk.Error != nil {
					failure = chunk.Error
					break
				}
				if chunk.Content != "" {
					d.append(chunk.Content)
				}
				if chunk.Done {
					if chunk.Model != "" {
						model = chunk.Model
					}
					break
				}
			}
		}
	}
	if failure == nil && ctx.Err() != nil {
		failure = ctx.Err()
	}

	a.finish(userID, d, model, failure)
}

// finish appends the reply, or discards it when d was superseded.
func (a *Assistant) finish(userID string, d *Draft, model string, failure error) {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.inflight[d.ConversationID] == d {
		delete(u.inflight, d.ConversationID)
	}
	if d.isSuperseded() {
		a.metrics.Chat("superseded")
		d.finalize(Message{}, ErrSuperseded)
		return
	}

	// Persistence outlives the request that started the reply.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := Message{
		ID:        a.newID(),
		Role:      RoleAssistant,
		Content:   d.Text(),
		CreatedAt: a.clock.Now(),
		Model:     model,
	}
	if failure != nil {
		msg.Error = true
		if strings.TrimSpace(msg.Content) == "" {
			msg.Content = FailureReply
		}
		slog.Warn("chat reply failed", "user_id", userID, "conversation_id", d.ConversationID, "error", failure)
		a.metrics.Chat("error")
		activity.Emit(ctx, a.events, activity.Event{
			UserID: userID,
			Type:   activity.ChatReplyFailed,
			Data:   map[string]any{"conversation_id": d.ConversationID, "error": failure.Error()},
		})
	} else {
		a.metrics.Chat("ok")
	}

	st := a.load(ctx, userID)
	i := st.find(d.ConversationID)
	if i < 0 {
		d.finalize(Message{}, ErrConversationNotFound)
		return
	}
	conv := &st.conversations[i]
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt

	if err := a.saveConversations(ctx, userID, st); err != nil {
		slog.Error("failed to store assistant message", "user_id", userID, "error", err)
		d.finalize(msg, fmt.Errorf("save reply: %w", err))
		return
	}
	d.finalize(msg, nil)
}

// buildContextMessages returns the conversation for the prompt: the summary,
// if any, followed by the messages after the compaction point. Error-flagged
// replies are left out.
func buildContextMessages(conv Conversation) []ai.Message {
	var messages []ai.Message

	start := 0
	if conv.Summary != "" && conv.CompactedAt <= len(conv.Messages) {
		messages = append(messages,
			ai.Message{Role: RoleUser, Content: "Previous conversation summary:\n" + conv.Summary},
			ai.Message{Role: RoleAssistant, Content: "Understood, I'll continue from there."},
		)
		start = conv.CompactedAt
	}
	for _, m := range conv.Messages[start:] {
		if m.Error {
			continue
		}
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

// estimateTokens gives a rough token count for messages (1 token ≈ 4 chars).
func estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

// maybeCompact summarizes older messages once the uncompacted tail passes the
// message or token threshold. Failures leave the conversation as it was.
func (a *Assistant) maybeCompact(ctx context.Context, userID string, conv *Conversation) {
	if a.provider == nil || conv.CompactedAt > len(conv.Messages) {
		return
	}
	uncompacted := conv.Messages[conv.CompactedAt:]
	if len(uncompacted) <= a.compactThreshold && estimateTokens(uncompacted) <= a.compactTokenThreshold {
		return
	}

	compactUpTo := len(conv.Messages) - a.keepRecent
	if compactUpTo <= conv.CompactedAt {
		return
	}

	var content strings.Builder
	if conv.Summary != "" {
		content.WriteString("Previous summary:\n")
		content.WriteString(conv.Summary)
		content.WriteString("\n\nNew messages to incorporate:\n")
	}
	for _, m := range conv.Messages[conv.CompactedAt:compactUpTo] {
		if m.Error {
			continue
		}
		who := "Student"
		if m.Role == RoleAssistant {
			who = "Counsellor"
		}
		fmt.Fprintf(&content, "%s: %s\n", who, m.Content)
	}

	resp, err := a.provider.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: `Summarize this career guidance conversation concisely. Capture:
- The student's interests, stream preference and academic background
- Careers, courses or scholarships discussed
- Open questions or next steps the student agreed to
Keep the summary under 150 words. Write in the same language used in the conversation.`},
			{Role: RoleUser, Content: content.String()},
		},
		Model:     a.model,
		Task:      ai.TaskSummary,
		MaxTokens: 256,
	})
	if err != nil {
		slog.Warn("compaction failed, continuing without summary", "error", err)
		return
	}

	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	i := st.find(conv.ID)
	if i < 0 || len(st.conversations[i].Messages) < compactUpTo {
		return
	}
	st.conversations[i].Summary = resp.Content
	st.conversations[i].CompactedAt = compactUpTo
	if err := a.saveConversations(ctx, userID, st); err != nil {
		slog.Warn("failed to save summary", "error", err)
		return
	}

	conv.Summary = resp.Content
	conv.CompactedAt = compactUpTo

	slog.Info("conversation compacted",
		"conversation_id", conv.ID,
		"compacted_messages", compactUpTo,
		"remaining_messages", len(conv.Messages)-compactUpTo,
	)
}
