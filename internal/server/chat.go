package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/careercompass/internal/assistant"
)

func (s *Server) chatRoutes() {
	s.handle("GET /api/users/{user}/chat/conversations", s.handleConversations)
	s.handle("POST /api/users/{user}/chat/conversations", s.handleNewConversation)
	s.handle("GET /api/users/{user}/chat/conversations/{id}", s.handleConversation)
	s.handle("PUT /api/users/{user}/chat/active", s.handleSetActive)
	s.handle("POST /api/users/{user}/chat/messages", s.handleSend)
	s.handle("DELETE /api/users/{user}/chat/conversations/{id}/messages", s.handleClear)
	s.handle("DELETE /api/users/{user}/chat/conversations/{id}", s.handleDelete)
	s.handle("POST /api/users/{user}/chat/conversations/{id}/messages/{mid}/bookmark", s.handleBookmark)
	s.handle("GET /api/users/{user}/chat/conversations/{id}/export", s.handleExport)
	// The stream is a long-lived upgrade; keep it out of the latency histogram.
	s.mux.HandleFunc("GET /api/users/{user}/chat/stream", s.handleStream)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	convs := s.deps.Assistant.Conversations(r.Context(), user)
	if convs == nil {
		convs = []assistant.Conversation{}
	}
	active := ""
	if c, ok := s.deps.Assistant.Active(r.Context(), user); ok {
		active = c.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "conversations": convs})
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.deps.Assistant.NewConversation(r.Context(), r.PathValue("user"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.deps.Assistant.Conversation(r.Context(), r.PathValue("user"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Assistant.SetActive(r.Context(), r.PathValue("user"), body.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": body.ID})
}

// handleSend appends a message and blocks until the reply is final.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.deps.Assistant.Send(r.Context(), r.PathValue("user"), body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Assistant.Clear(r.Context(), r.PathValue("user"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Assistant.Delete(r.Context(), r.PathValue("user"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	on, err := s.deps.Assistant.ToggleBookmark(r.Context(), r.PathValue("user"), r.PathValue("id"), r.PathValue("mid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": on})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user, id := r.PathValue("user"), r.PathValue("id")

	var buf bytes.Buffer
	if r.URL.Query().Get("format") == "xlsx" {
		if err := s.deps.Assistant.ExportXLSX(r.Context(), user, id, &buf); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="conversation.xlsx"`)
	} else {
		if err := s.deps.Assistant.ExportText(r.Context(), user, id, &buf); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="conversation.txt"`)
	}
	w.Write(buf.Bytes())
}

// Frame types on the chat stream.
const (
	frameSend       = "send"
	frameChunk      = "chunk"
	frameDone       = "done"
	frameSuperseded = "superseded"
	frameError      = "error"
)

// streamFrame is one JSON message on the chat stream. Clients send
// {"type":"send","text":...}; the server answers with chunk frames followed by
// exactly one done, superseded or error frame per send.
type streamFrame struct {
	Type           string             `json:"type"`
	Text           string             `json:"text,omitempty"`
	ConversationID string             `json:"conversationId,omitempty"`
	PromptID       string             `json:"promptId,omitempty"`
	Content        string             `json:"content,omitempty"`
	Message        *assistant.Message `json:"message,omitempty"`
	Error          string             `json:"error,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("chat stream upgrade failed", "user_id", user, "error", err)
		return
	}
	defer conn.CloseNow()

	// Replies still pending when the client goes away are cancelled; the
	// assistant stores them as failed.
	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		var in streamFrame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				slog.Debug("chat stream closed", "user_id", user, "error", err)
			}
			return
		}
		if in.Type != frameSend {
			s.writeFrame(ctx, conn, streamFrame{Type: frameError, Error: "unknown frame type " + in.Type})
			continue
		}

		d, err := s.deps.Assistant.Stream(ctx, user, in.Text)
		if err != nil {
			s.writeFrame(ctx, conn, streamFrame{Type: frameError, Error: err.Error()})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.relay(ctx, conn, d)
		}()
	}
}

// relay forwards a draft's chunks and its final outcome to the socket.
func (s *Server) relay(ctx context.Context, conn *websocket.Conn, d *assistant.Draft) {
	base := streamFrame{ConversationID: d.ConversationID, PromptID: d.Prompt.ID}
	for chunk := range d.Chunks() {
		f := base
		f.Type, f.Content = frameChunk, chunk
		s.writeFrame(ctx, conn, f)
	}

	msg, err := d.Wait(ctx)
	f := base
	switch {
	case errors.Is(err, assistant.ErrSuperseded):
		f.Type = frameSuperseded
	case err != nil:
		f.Type, f.Error = frameError, err.Error()
	default:
		f.Type, f.Message = frameDone, &msg
	}
	s.writeFrame(ctx, conn, f)
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, f streamFrame) {
	if err := wsjson.Write(ctx, conn, f); err != nil {
		slog.Debug("chat stream write failed", "type", f.Type, "error", err)
	}
}
