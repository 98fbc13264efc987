package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nward/askbox/internal/api/handlers"
	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/service"
	"github.com/nward/askbox/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, manager *realtime.Manager, sessions *session.Store) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, sessions)
	questionHandler := handlers.NewQuestionHandler(services.Question, services.Profile)
	noteHandler := handlers.NewNoteHandler(services.Note)
	profileHandler := handlers.NewProfileHandler(services.Profile)
	wsHandler := handlers.NewWebSocketHandler(manager, sessions)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(sessions))
				r.Get("/me", authHandler.Me)
				r.Post("/logout-all", authHandler.LogoutAll)
			})
		})

		// Public profile routes
		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Get("/questions", questionHandler.ListAnswered)
			r.Post("/questions", questionHandler.Ask)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessions))

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", questionHandler.ListInbox)
				r.Post("/{id}/answer", questionHandler.Answer)
				r.Post("/{id}/moderate", questionHandler.Moderate)
				r.Delete("/{id}", questionHandler.Delete)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", noteHandler.List)
				r.Post("/", noteHandler.Create)
				r.Delete("/{id}", noteHandler.Delete)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Put("/bio", profileHandler.UpdateBio)
				r.Put("/moderation", profileHandler.UpdateModeration)
			})
		})

		// WebSocket endpoint; authentication is resolved per-socket so that
		// public profile pages can subscribe anonymously
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
