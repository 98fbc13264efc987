package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// PublicProfileResponse is what an anonymous visitor may see. Email stays
// private.
type PublicProfileResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	CreatedAt string  `json:"createdAt"`
}

type UpdateBioRequest struct {
	Bio *string `json:"bio" validate:"omitempty,max=500"`
}

type UpdateModerationRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.profileService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Printf("ERROR [handlers.GetProfile] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile.")
		return
	}

	writeJSON(w, http.StatusOK, PublicProfileResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt.UTC().Format("2006-01-02T15:04:05.999Z07:00"),
	})
}

func (h *ProfileHandler) UpdateBio(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateBioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.profileService.UpdateBio(r.Context(), userID, req.Bio)
	if err != nil {
		log.Printf("ERROR [handlers.UpdateBio] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile.")
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *ProfileHandler) UpdateModeration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateModerationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.profileService.SetModerationEnabled(r.Context(), userID, req.Enabled)
	if err != nil {
		log.Printf("ERROR [handlers.UpdateModeration] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile.")
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}
