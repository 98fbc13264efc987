package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nward/askbox/internal/api"
	"github.com/nward/askbox/internal/config"
	"github.com/nward/askbox/internal/moderation"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/repository/postgres"
	"github.com/nward/askbox/internal/service"
	"github.com/nward/askbox/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize session store (redis backs token revocation)
	redisClient, err := session.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	sessions := session.NewStore(cfg, repos.Session, redisClient)

	// Sweep expired session rows at startup, then hourly
	go func() {
		sweep := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sessions.SweepExpired(ctx); err != nil {
				log.Printf("ERROR [main] session sweep failed: %v", err)
			}
		}
		sweep()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			sweep()
		}
	}()

	// Initialize realtime subscription layer
	broker := realtime.NewBroker()
	manager := realtime.NewManager(realtime.NewStoreBackend(repos), broker)

	// Initialize services
	moderator := moderation.NewClient(moderation.Config{
		BaseURL: cfg.ModerationURL,
		APIKey:  cfg.ModerationAPIKey,
		Model:   cfg.ModerationModel,
		Timeout: cfg.ModerationTimeout,
		Retries: cfg.ModerationRetries,
	})
	services := service.NewServices(repos, cfg, moderator, broker)

	// Initialize router
	router := api.NewRouter(services, manager, sessions)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("failed to close redis client: %v", err)
	}

	log.Println("Server stopped")
}
