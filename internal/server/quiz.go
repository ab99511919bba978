package server

import (
	"errors"
	"net/http"

	"github.com/p-n-ai/careercompass/internal/quiz"
)

func (s *Server) quizRoutes() {
	s.handle("GET /api/quiz/questions", s.handleQuizQuestions)
	s.handle("POST /api/quiz/score", s.handleQuizScore)
	s.handle("POST /api/quiz/sessions", s.handleQuizStart)
	s.handle("GET /api/quiz/sessions/{id}", s.handleQuizGet)
	s.handle("DELETE /api/quiz/sessions/{id}", s.handleQuizDelete)
	s.handle("POST /api/quiz/sessions/{id}/{action}", s.handleQuizAction)
}

func (s *Server) handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": s.deps.Quiz.Bank().Questions()})
}

type quizResponse struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// handleQuizScore scores a stateless answer set.
func (s *Server) handleQuizScore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Responses []quizResponse `json:"responses"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	answers := quiz.AnswerMap{}
	for _, resp := range body.Responses {
		answers[resp.QuestionID] = resp.Answer
	}
	res, err := s.deps.Quiz.Score(r.Context(), answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.deps.Quiz.Start(body.UserID))
}

func (s *Server) handleQuizGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Quiz.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleQuizDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Quiz.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuizAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.deps.Quiz

	var (
		v   quiz.View
		err error
	)
	switch r.PathValue("action") {
	case "answer":
		var body quizResponse
		if err := decode(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		v, err = m.Answer(id, body.QuestionID, body.Answer)
	case "next":
		v, err = m.Next(id)
	case "prev":
		v, err = m.Prev(id)
	case "review":
		v, err = m.Review(id)
	case "edit":
		var body struct {
			Index int `json:"index"`
		}
		if err := decode(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		v, err = m.Edit(id, body.Index)
	case "submit":
		v, err = m.Submit(r.Context(), id)
	case "retake":
		v, err = m.Retake(id)
	default:
		writeError(w, badRequest{err: errors.New("unknown quiz action " + r.PathValue("action"))})
		return
	}

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
