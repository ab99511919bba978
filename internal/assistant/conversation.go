package assistant

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/p-n-ai/careercompass/internal/platform/kvstore"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const titleLength = 48

// Message is one entry of a conversation.
type Message struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Error      bool      `json:"error,omitempty"`
	Bookmarked bool      `json:"bookmarked,omitempty"`
	Model      string    `json:"model,omitempty"`
}

// Conversation is an ordered message list. Messages are only appended, except
// when the whole conversation is cleared.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	Summary     string    `json:"summary,omitempty"`
	CompactedAt int       `json:"compactedAt,omitempty"` // number of messages covered by Summary
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Conversation) message(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// titleFrom derives a conversation title from its first user message.
func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= titleLength {
		return text
	}
	return strings.TrimSpace(string(r[:titleLength])) + "…"
}

// state is a user's persisted chat state.
type state struct {
	conversations []Conversation
	active        string
}

func (s *state) find(id string) int {
	return slices.IndexFunc(s.conversations, func(c Conversation) bool { return c.ID == id })
}

func (a *Assistant) load(ctx context.Context, userID string) *state {
	convs := kvstore.Load(ctx, a.store, kvstore.Scoped(userID, kvstore.KeyChatConversations), []Conversation{})
	active := kvstore.Load(ctx, a.store, kvstore.Scoped(userID, kvstore.KeyChatActiveConversation), "")
	st := &state{conversations: convs, active: active}
	if st.active != "" && st.find(st.active) < 0 {
		st.active = ""
	}
	return st
}

func (a *Assistant) saveConversations(ctx context.Context, userID string, st *state) error {
	return kvstore.Save(ctx, a.store, kvstore.Scoped(userID, kvstore.KeyChatConversations), st.conversations)
}

func (a *Assistant) saveActive(ctx context.Context, userID string, st *state) error {
	return kvstore.Save(ctx, a.store, kvstore.Scoped(userID, kvstore.KeyChatActiveConversation), st.active)
}
