package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

const chunkBuffer = 256

// Draft accumulates a streamed assistant reply. It is finalized exactly once,
// either into the appended assistant message or as discarded when a newer
// send superseded it.
type Draft struct {
	// ConversationID is the conversation the reply belongs to.
	ConversationID string
	// Prompt is the user message that triggered the reply.
	Prompt Message

	cancel context.CancelFunc
	chunks chan string
	done   chan struct{}

	mu         sync.Mutex
	text       strings.Builder
	superseded bool

	once sync.Once
	msg  Message
	err  error
}

func newDraft(convID string, prompt Message, cancel context.CancelFunc) *Draft {
	return &Draft{
		ConversationID: convID,
		Prompt:         prompt,
		cancel:         cancel,
		chunks:         make(chan string, chunkBuffer),
		done:           make(chan struct{}),
	}
}

// Chunks delivers reply pieces as they arrive and is closed on finalization.
// A reader that falls behind may miss pieces; the message returned by Wait
// always carries the full text.
func (d *Draft) Chunks() <-chan string {
	return d.chunks
}

// Text returns the reply accumulated so far.
func (d *Draft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text.String()
}

// Done is closed once the draft is finalized.
func (d *Draft) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the draft is finalized. It returns ErrSuperseded when a
// newer send replaced this one.
func (d *Draft) Wait(ctx context.Context) (Message, error) {
	select {
	case <-d.done:
		return d.msg, d.err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (d *Draft) append(s string) {
	d.mu.Lock()
	d.text.WriteString(s)
	d.mu.Unlock()

	select {
	case d.chunks <- s:
	default:
		slog.Debug("chat chunk reader is behind, dropping chunk", "conversation_id", d.ConversationID)
	}
}

// supersede marks the draft as replaced and stops its stream.
func (d *Draft) supersede() {
	d.mu.Lock()
	d.superseded = true
	d.mu.Unlock()
	d.cancel()
}

func (d *Draft) isSuperseded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.superseded
}

func (d *Draft) finalize(msg Message, err error) {
	d.once.Do(func() {
		d.msg, d.err = msg, err
		close(d.chunks)
		close(d.done)
		d.cancel()
	})
}
