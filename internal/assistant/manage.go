package assistant

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Conversations returns the user's conversations, most recently updated first.
func (a *Assistant) Conversations(ctx context.Context, userID string) []Conversation {
	st := a.load(ctx, userID)
	convs := st.conversations
	slices.SortStableFunc(convs, func(x, y Conversation) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})
	return convs
}

// Conversation returns one conversation by id.
func (a *Assistant) Conversation(ctx context.Context, userID, convID string) (Conversation, error) {
	st := a.load(ctx, userID)
	i := st.find(convID)
	if i < 0 {
		return Conversation{}, ErrConversationNotFound
	}
	return st.conversations[i], nil
}

// Active returns the active conversation, or false when none is active.
func (a *Assistant) Active(ctx context.Context, userID string) (Conversation, bool) {
	st := a.load(ctx, userID)
	i := st.find(st.active)
	if i < 0 {
		return Conversation{}, false
	}
	return st.conversations[i], true
}

// NewConversation creates an empty conversation and makes it active.
func (a *Assistant) NewConversation(ctx context.Context, userID string) (Conversation, error) {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	now := a.clock.Now()
	conv := Conversation{
		ID:        a.newID(),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.conversations = append(st.conversations, conv)
	st.active = conv.ID

	if err := a.saveConversations(ctx, userID, st); err != nil {
		return Conversation{}, fmt.Errorf("save conversations: %w", err)
	}
	if err := a.saveActive(ctx, userID, st); err != nil {
		return Conversation{}, fmt.Errorf("save active conversation: %w", err)
	}
	return conv, nil
}

// SetActive points the active id at an existing conversation.
func (a *Assistant) SetActive(ctx context.Context, userID, convID string) error {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	if st.find(convID) < 0 {
		return ErrConversationNotFound
	}
	st.active = convID
	if err := a.saveActive(ctx, userID, st); err != nil {
		return fmt.Errorf("save active conversation: %w", err)
	}
	return nil
}

// Clear empties a conversation's messages and summary. A reply in flight for
// it is discarded.
func (a *Assistant) Clear(ctx context.Context, userID, convID string) error {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	i := st.find(convID)
	if i < 0 {
		return ErrConversationNotFound
	}
	u.cancelInflight(convID)

	conv := &st.conversations[i]
	conv.Messages = []Message{}
	conv.Summary = ""
	conv.CompactedAt = 0
	conv.UpdatedAt = a.clock.Now()

	if err := a.saveConversations(ctx, userID, st); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	slog.Info("conversation cleared", "user_id", userID, "conversation_id", convID)
	return nil
}

// Delete removes a conversation. When it was active, the most recently
// updated remaining conversation becomes active.
func (a *Assistant) Delete(ctx context.Context, userID, convID string) error {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	i := st.find(convID)
	if i < 0 {
		return ErrConversationNotFound
	}
	u.cancelInflight(convID)

	st.conversations = slices.Delete(st.conversations, i, i+1)
	if st.active == convID {
		st.active = ""
		if len(st.conversations) > 0 {
			latest := slices.MaxFunc(st.conversations, func(x, y Conversation) int {
				return cmp.Or(x.UpdatedAt.Compare(y.UpdatedAt), x.CreatedAt.Compare(y.CreatedAt))
			})
			st.active = latest.ID
		}
	}

	if err := a.saveConversations(ctx, userID, st); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	if err := a.saveActive(ctx, userID, st); err != nil {
		return fmt.Errorf("save active conversation: %w", err)
	}
	return nil
}

// ToggleBookmark flips a message's bookmark flag and returns the new value.
func (a *Assistant) ToggleBookmark(ctx context.Context, userID, convID, msgID string) (bool, error) {
	u := a.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	st := a.load(ctx, userID)
	i := st.find(convID)
	if i < 0 {
		return false, ErrConversationNotFound
	}
	m := st.conversations[i].message(msgID)
	if m == nil {
		return false, ErrMessageNotFound
	}
	m.Bookmarked = !m.Bookmarked

	if err := a.saveConversations(ctx, userID, st); err != nil {
		return false, fmt.Errorf("save conversations: %w", err)
	}
	return m.Bookmarked, nil
}

// Bookmarks returns every bookmarked message across the user's conversations.
func (a *Assistant) Bookmarks(ctx context.Context, userID string) []Message {
	var out []Message
	for _, c := range a.load(ctx, userID).conversations {
		for _, m := range c.Messages {
			if m.Bookmarked {
				out = append(out, m)
			}
		}
	}
	return out
}

// cancelInflight supersedes the in-flight reply of convID and reports
// whether there was one. The caller holds u.mu.
func (u *user) cancelInflight(convID string) bool {
	d, ok := u.inflight[convID]
	if !ok {
		return false
	}
	d.supersede()
	delete(u.inflight, convID)
	return true
}
