package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/moderation"
	"github.com/nward/askbox/internal/service"
)

type QuestionHandler struct {
	questionService *service.QuestionService
	profileService  *service.ProfileService
}

func NewQuestionHandler(questionService *service.QuestionService, profileService *service.ProfileService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		profileService:  profileService,
	}
}

type AskRequest struct {
	QuestionText string `json:"questionText" validate:"required,max=280"`
}

type AnswerRequest struct {
	AnswerText string `json:"answerText" validate:"required,max=1000"`
}

// Ask receives an anonymous question for the profile named in the URL.
// No authentication: this is the whole point of the product.
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := h.profileService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Printf("ERROR [handlers.Ask] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit question.")
		return
	}

	question, err := h.questionService.Ask(r.Context(), service.AskInput{
		ToUserID:     target.ID,
		QuestionText: req.QuestionText,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuestionTooLong):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrQuestionRejected):
			writeError(w, http.StatusUnprocessableEntity, "Your question was deemed inappropriate. "+err.Error())
		case errors.Is(err, moderation.ErrUnavailable):
			log.Printf("ERROR [handlers.Ask] moderation unavailable: %v", err)
			writeError(w, http.StatusBadGateway, "Moderation check failed. Please try again.")
		default:
			log.Printf("ERROR [handlers.Ask] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to submit question.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

// ListInbox returns the authenticated user's own questions, unanswered
// included, newest first.
func (h *QuestionHandler) ListInbox(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	questions, err := h.questionService.ListForUser(r.Context(), userID, true)
	if err != nil {
		log.Printf("ERROR [handlers.ListInbox] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load questions.")
		return
	}

	writeJSON(w, http.StatusOK, questions)
}

// ListAnswered returns a profile's answered questions, the public view.
func (h *QuestionHandler) ListAnswered(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.profileService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Printf("ERROR [handlers.ListAnswered] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load questions.")
		return
	}

	questions, err := h.questionService.ListForUser(r.Context(), user.ID, true)
	if err != nil {
		log.Printf("ERROR [handlers.ListAnswered] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load questions.")
		return
	}

	answered := make([]*domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.IsAnswered {
			answered = append(answered, q)
		}
	}

	writeJSON(w, http.StatusOK, answered)
}

func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question ID.")
		return
	}

	var req AnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	question, owner, err := h.questionService.Answer(r.Context(), userID, questionID, req.AnswerText)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuestionNotFound):
			writeError(w, http.StatusNotFound, "Question not found.")
		case errors.Is(err, domain.ErrNotQuestionOwner):
			writeError(w, http.StatusForbidden, "Question belongs to another user.")
		case errors.Is(err, domain.ErrAlreadyAnswered):
			writeError(w, http.StatusConflict, "Question has already been answered.")
		case errors.Is(err, domain.ErrAnswerTooLong):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("ERROR [handlers.Answer] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to answer question.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question":    question,
		"profilePath": "/u/" + owner.Username,
	})
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question ID.")
		return
	}

	owner, err := h.questionService.Delete(r.Context(), userID, questionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuestionNotFound):
			writeError(w, http.StatusNotFound, "Question not found.")
		case errors.Is(err, domain.ErrNotQuestionOwner):
			writeError(w, http.StatusForbidden, "Question belongs to another user.")
		default:
			log.Printf("ERROR [handlers.Delete] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete question.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"profilePath": "/u/" + owner.Username,
	})
}

// Moderate runs an on-demand moderation check from the dashboard.
func (h *QuestionHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question ID.")
		return
	}

	verdict, err := h.questionService.Moderate(r.Context(), userID, questionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuestionNotFound):
			writeError(w, http.StatusNotFound, "Question not found.")
		case errors.Is(err, domain.ErrNotQuestionOwner):
			writeError(w, http.StatusForbidden, "Question belongs to another user.")
		case errors.Is(err, moderation.ErrUnavailable):
			log.Printf("ERROR [handlers.Moderate] %v", err)
			writeError(w, http.StatusBadGateway, "Failed to run moderation check.")
		default:
			log.Printf("ERROR [handlers.Moderate] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to run moderation check.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": verdict})
}
