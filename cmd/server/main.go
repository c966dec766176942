// Lingua Tutor API Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/lingua-tutor/internal/api"
	"github.com/ashureev/lingua-tutor/internal/config"
	"github.com/ashureev/lingua-tutor/internal/llm"
	"github.com/ashureev/lingua-tutor/internal/middleware"
	"github.com/ashureev/lingua-tutor/internal/prompt"
	"github.com/ashureev/lingua-tutor/internal/store"
	"github.com/ashureev/lingua-tutor/internal/transcript"
	"github.com/ashureev/lingua-tutor/internal/tutor"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "store", cfg.StoreDriver, "provider", cfg.LLMProvider)

	catalog, err := prompt.Load(cfg.PromptCatalogPath)
	if err != nil {
		slog.Error("Failed to load prompt catalog", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, store.Options{
		Driver: cfg.StoreDriver,
		DBPath: cfg.DBPath,
		Surreal: store.SurrealConfig{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.SurrealDatabase,
			Username:  cfg.SurrealUser,
			Password:  cfg.SurrealPass,
			AuthLevel: cfg.SurrealAuthLevel,
		},
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "driver", cfg.StoreDriver)

	model, err := llm.NewModel(ctx, llm.Config{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OllamaHost:      cfg.OllamaHost,
	})
	if err != nil {
		slog.Error("Failed to initialize completion model", "error", err)
		os.Exit(1)
	}
	slog.Info("Completion model ready", "model", model.Name())

	recorder, err := transcript.New(transcript.Config{
		Enabled:   cfg.ConversationLogEnabled,
		Dir:       cfg.ConversationLogDir,
		QueueSize: cfg.ConversationLogQueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize services.
	planner := tutor.NewPlanner(model, repo, catalog, logger)
	coach := tutor.NewCoach(model, repo, catalog, recorder, logger)

	// Initialize handlers.
	handler := api.NewHandler(planner, coach, cfg.MaxRequestBodyBytes)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS)

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	// Completion calls can take a while, so WriteTimeout stays generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server stopped successfully")
}
