package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/service"
	"github.com/nward/askbox/internal/session"
)

type AuthHandler struct {
	authService *service.AuthService
	sessions    *session.Store
}

func NewAuthHandler(authService *service.AuthService, sessions *session.Store) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID                  string  `json:"id"`
	Username            string  `json:"username"`
	Email               string  `json:"email"`
	Bio                 *string `json:"bio"`
	IsModerationEnabled bool    `json:"isModerationEnabled"`
	CreatedAt           string  `json:"createdAt"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                  u.ID.String(),
		Username:            u.Username,
		Email:               u.Email,
		Bio:                 u.Bio,
		IsModerationEnabled: u.IsModerationEnabled,
		CreatedAt:           u.CreatedAt.UTC().Format("2006-01-02T15:04:05.999Z07:00"),
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "This username is already taken. Please choose another.")
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, "This email is already registered.")
		case errors.Is(err, domain.ErrInvalidUsername),
			errors.Is(err, domain.ErrInvalidEmail),
			errors.Is(err, domain.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("ERROR [handlers.Signup] %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create account.")
		}
		return
	}

	if err := h.sessions.Create(r.Context(), w, r, user); err != nil {
		log.Printf("ERROR [handlers.Signup] failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create a session.")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		log.Printf("ERROR [handlers.Login] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to log in.")
		return
	}

	if err := h.sessions.Create(r.Context(), w, r, user); err != nil {
		log.Printf("ERROR [handlers.Login] failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create a session.")
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LogoutAll ends the user's sessions on every device, not just this one.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	h.sessions.ClearAll(r.Context(), w, r, userID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Printf("ERROR [handlers.Me] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user.")
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}
