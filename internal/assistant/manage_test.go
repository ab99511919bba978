package assistant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/careercompass/internal/ai"
	"github.com/p-n-ai/careercompass/internal/assistant"
)

func TestNewConversation_BecomesActive(t *testing.T) {
	f := newAssistant(t, ai.NewMockProvider("ok"))
	ctx := context.Background()

	if _, err := f.a.Send(ctx, "u1", "first thread"); err != nil {
		t.Fatal(err)
	}
	first, _ := f.a.Active(ctx, "u1")

	f.clock.Advance(time.Minute)
	conv, err := f.a.NewConversation(ctx, "u1")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	active, _ := f.a.Active(ctx, "u1")
	if active.ID != conv.ID || len(active.Messages) != 0 {
		t.Errorf("active = %+v, want new empty conversation", active)
	}

	if _, err := f.a.Send(ctx, "u1", "second thread"); err != nil {
		t.Fatal(err)
	}
	convs := f.a.Conversations(ctx, "u1")
	if len(convs) != 2 || convs[0].ID != conv.ID || convs[1].ID != first.ID {
		t.Errorf("Conversations() order = %+v", convs)
	}
	if len(convs[1].Messages) != 2 {
		t.Error("sending to the new conversation must not touch the old one")
	}
}

func TestSetActive(t *testing.T) {
	f := newAssistant(t, ai.NewMockProvider("ok"))
	ctx := context.Background()

	a, _ := f.a.NewConversation(ctx, "u1")
	if _, err := f.a.NewConversation(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := f.a.SetActive(ctx, "u1", a.ID); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if got, _ := f.a.Active(ctx, "u1"); got.ID != a.ID {
		t.Errorf("Active() = %q, want %q", got.ID, a.ID)
	}
	if err := f.a.SetActive(ctx, "u1", "nope"); !errors.Is(err, assistant.ErrConversationNotFound) {
		t.Errorf("SetActive(unknown) error = %v", err)
	}
}

func TestClear(t *testing.T) {
	f := newAssistant(t, ai.NewMockProvider("ok"), func(c *assistant.Config) {
		c.CompactThreshold = 2
		c.KeepRecent = 1
	})
	ctx := context.Background()
	for range 2 {
		if _, err := f.a.Send(ctx, "u1", "hi"); err != nil {
			t.Fatal(err)
		}
	}
	conv, _ := f.a.Active(ctx, "u1")
	if conv.Summary == "" {
		t.Fatal("expected compaction before clear")
	}

	if err := f.a.Clear(ctx, "u1", conv.ID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, ok := f.a.Active(ctx, "u1")
	if !ok || got.ID != conv.ID {
		t.Fatal("cleared conversation should stay active")
	}
	if len(got.Messages) != 0 || got.Summary != "" || got.CompactedAt != 0 {
		t.Errorf("after Clear = %+v", got)
	}
	if err := f.a.Clear(ctx, "u1", "nope"); !errors.Is(err, assistant.ErrConversationNotFound) {
		t.Errorf("Clear(unknown) error = %v", err)
	}
}

func TestClear_DiscardsInflightReply(t *testing.T) {
	p := &gatedProvider{started: make(chan struct{})}
	f := newAssistant(t, p)
	ctx := context.Background()

	d, err := f.a.Stream(ctx, "u1", "question")
	if err != nil {
		t.Fatal(err)
	}
	<-p.started
	if err := f.a.Clear(ctx, "u1", d.ConversationID); err != nil {
		t.Fatal(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := d.Wait(waitCtx); !errors.Is(err, assistant.ErrSuperseded) {
		t.Errorf("Wait() error = %v, want ErrSuperseded", err)
	}
	conv, _ := f.a.Active(ctx, "u1")
	if len(conv.Messages) != 0 {
		t.Errorf("stale reply appended after clear: %+v", conv.Messages)
	}
}

func TestDelete_ReassignsActive(t *testing.T) {
	f := newAssistant(t, ai.NewMockProvider("ok"))
	ctx := context.Background()

	older, _ := f.a.NewConversation(ctx, "u1")
	f.clock.Advance(time.Minute)
	newer, _ := f.a.NewConversation(ctx, "u1")
	f.clock.Advance(time.Minute)
	current, _ := f.a.NewConversation(ctx, "u1")

	if err := f.a.Delete(ctx, "u1", current.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := f.a.Active(ctx, "u1"); got.ID != newer.ID {
		t.Errorf("Active() = %q, want most recent remaining %q", got.ID, newer.ID)
	}

	if err := f.a.Delete(ctx, "u1", older.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.a.Active(ctx, "u1"); got.ID != newer.ID {
		t.Error("deleting an inactive conversation must not move the active pointer")
	}

	if err := f.a.Delete(ctx, "u1", newer.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.a.Active(ctx, "u1"); ok {
		t.Error("no conversation should be active after deleting the last one")
	}
	if err := f.a.Delete(ctx, "u1", newer.ID); !errors.Is(err, assistant.ErrConversationNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestToggleBookmark(t *testing.T) {
	f := newAssistant(t, ai.NewMockProvider("Consider B.Com."))
	ctx := context.Background()

	reply, err := f.a.Send(ctx, "u1", "What after 12th commerce?")
	if err != nil {
		t.Fatal(err)
	}
	conv, _ := f.a.Active(ctx, "u1")

	on, err := f.a.ToggleBookmark(ctx, "u1", conv.ID, reply.ID)
	if err != nil || !on {
		t.Fatalf("ToggleBookmark() = %v, %v", on, err)
	}
	if marks := f.a.Bookmarks(ctx, "u1"); len(marks) != 1 || marks[0].ID != reply.ID {
		t.Errorf("Bookmarks() = %+v", marks)
	}

	off, err := f.a.ToggleBookmark(ctx, "u1", conv.ID, reply.ID)
	if err != nil || off {
		t.Errorf("second ToggleBookmark() = %v, %v", off, err)
	}

	if _, err := f.a.ToggleBookmark(ctx, "u1", conv.ID, "nope"); !errors.Is(err, assistant.ErrMessageNotFound) {
		t.Errorf("unknown message error = %v", err)
	}
	if _, err := f.a.ToggleBookmark(ctx, "u1", "nope", reply.ID); !errors.Is(err, assistant.ErrConversationNotFound) {
		t.Errorf("unknown conversation error = %v", err)
	}
}
