package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/quiz"
)

const maxTopicLength = 100

type QuizHandler struct {
	service *quiz.Service
	logger  *slog.Logger
}

func NewQuizHandler(svc *quiz.Service, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{service: svc, logger: logger}
}

// quizView hides the answer and explanation of questions the user has not
// answered yet. A completed quiz is shown in full.
func quizView(a *model.QuizAttempt) *model.QuizAttempt {
	if a.State == model.QuizCompleted {
		return a
	}
	v := *a
	v.Questions = make([]model.QuizQuestion, len(a.Questions))
	for i, q := range a.Questions {
		if i >= len(a.Answers) || a.Answers[i].Selected == "" {
			q.CorrectAnswer = ""
			q.Explanation = ""
		}
		v.Questions[i] = q
	}
	return &v
}

// Start handles POST /api/quiz. Generation failures still produce a
// playable quiz flagged as degraded.
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if len(req.Topic) > maxTopicLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "topic is too long"})
		return
	}

	attempt, err := h.service.Start(r.Context(), auth.UserID(r.Context()), req.Topic)
	if err != nil {
		writeError(w, h.logger, err, "start quiz")
		return
	}
	writeJSON(w, http.StatusCreated, quizView(attempt))
}

// Get handles GET /api/quiz/{id}
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.service.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "get quiz")
		return
	}
	writeJSON(w, http.StatusOK, quizView(attempt))
}

// Answer handles POST /api/quiz/{id}/answer
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option string `json:"option"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, correct, err := h.service.Answer(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), req.Option)
	if err != nil {
		writeError(w, h.logger, err, "record answer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempt": quizView(attempt), "correct": correct})
}

// Next handles POST /api/quiz/{id}/next
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.service.Next(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "advance quiz")
		return
	}
	writeJSON(w, http.StatusOK, quizView(attempt))
}

// Previous handles POST /api/quiz/{id}/previous
func (h *QuizHandler) Previous(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.service.Previous(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "rewind quiz")
		return
	}
	writeJSON(w, http.StatusOK, quizView(attempt))
}

// Complete handles POST /api/quiz/{id}/complete
func (h *QuizHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Complete(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "complete quiz")
		return
	}
	c.Attempt = quizView(c.Attempt)
	writeJSON(w, http.StatusOK, c)
}
