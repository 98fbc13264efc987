package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/service"
)

type NoteHandler struct {
	noteService *service.NoteService
}

func NewNoteHandler(noteService *service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

type CreateNoteRequest struct {
	ContentText string `json:"contentText" validate:"required,max=500"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := h.noteService.Create(r.Context(), userID, req.ContentText)
	if err != nil {
		if errors.Is(err, domain.ErrNoteTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR [handlers.CreateNote] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create note.")
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	notes, err := h.noteService.List(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR [handlers.ListNotes] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load notes.")
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	noteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID.")
		return
	}

	if err := h.noteService.Delete(r.Context(), userID, noteID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoteNotFound):
			writeError(w, http.StatusNotFound, "Note not found.")
		case errors.Is(err, domain.ErrNotNoteOwner):
			writeError(w, http.StatusForbidden, "Note belongs to another user.")
		default:
			log.Printf("ERROR [handlers.DeleteNote] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete note.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
