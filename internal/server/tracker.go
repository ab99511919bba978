package server

import (
	"bytes"
	"net/http"

	"github.com/p-n-ai/careercompass/internal/catalog"
	"github.com/p-n-ai/careercompass/internal/tracker"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) trackerRoutes() {
	s.handle("GET /api/users/{user}/tracker", s.handleTrackerList)
	s.handle("POST /api/users/{user}/tracker/save", s.handleTrackerSave)
	s.handle("PUT /api/users/{user}/tracker/{id}/status", s.handleTrackerStatus)
	s.handle("PUT /api/users/{user}/tracker/{id}/checklist", s.handleTrackerChecklist)
	s.handle("POST /api/users/{user}/tracker/reminder", s.handleTrackerReminder)
	s.handle("GET /api/users/{user}/tracker/export", s.handleTrackerExport)
	s.handle("POST /api/users/{user}/favorites/{id}", s.handleFavoriteToggle)
	s.handle("GET /api/users/{user}/favorites", s.handleFavorites)
}

func (s *Server) handleTrackerList(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	items := s.deps.Tracker.Items(r.Context(), user)
	if items == nil {
		items = []tracker.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved": nonNil(s.deps.Tracker.Saved(r.Context(), user)),
		"items": items,
	})
}

// handleTrackerSave toggles the saved state of the posted record.
func (s *Server) handleTrackerSave(w http.ResponseWriter, r *http.Request) {
	var rec catalog.Record
	if err := decode(w, r, &rec); err != nil {
		writeError(w, err)
		return
	}
	user := r.PathValue("user")
	saved, err := s.deps.Tracker.ToggleSave(r.Context(), user, rec)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"saved": saved}
	if item, ok := s.deps.Tracker.Item(r.Context(), user, rec.ID); ok {
		resp["item"] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrackerStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.deps.Tracker.SetStatus(r.Context(), r.PathValue("user"), r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleTrackerChecklist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Document string `json:"document"`
		Checked  bool   `json:"checked"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.deps.Tracker.SetChecklistItem(r.Context(), r.PathValue("user"), r.PathValue("id"), body.Document, body.Checked)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleTrackerReminder(w http.ResponseWriter, r *http.Request) {
	var rec catalog.Record
	if err := decode(w, r, &rec); err != nil {
		writeError(w, err)
		return
	}
	reminder, err := s.deps.Tracker.SetReminder(r.Context(), r.PathValue("user"), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": rec.ID, "reminderDate": reminder})
}

func (s *Server) handleTrackerExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Tracker.ExportXLSX(r.Context(), r.PathValue("user"), &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="scholarship-tracker.xlsx"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleFavoriteToggle(w http.ResponseWriter, r *http.Request) {
	fav, err := s.deps.Tracker.ToggleFavorite(r.Context(), r.PathValue("user"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": nonNil(s.deps.Tracker.Favorites(r.Context(), r.PathValue("user")))})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
