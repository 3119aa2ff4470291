package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spendtrack/config"
	"spendtrack/internal/advisor"
	"spendtrack/internal/ai"
	"spendtrack/internal/api/handlers"
	"spendtrack/internal/api/middleware"
	"spendtrack/internal/archive"
	"spendtrack/internal/chat"
	"spendtrack/internal/identity"
	"spendtrack/internal/logger"
	"spendtrack/internal/storage"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)

	ctx := context.Background()

	var (
		store    storage.Store
		provider identity.Provider
		archiver chat.Archiver
	)

	if cfg.CloudMode() {
		mongoStore, err := storage.NewMongoStore(ctx, cfg.MongoURI, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to document store")
		}
		store = mongoStore
		provider = identity.NewCloudProvider(cfg.DataDir, mongoStore, log)

		if cfg.GCSBucket != "" {
			archiver = archive.NewGCSArchive(cfg.GCSBucket, cfg.GoogleCredentialsFile, log)
			log.Info().Str("bucket", cfg.GCSBucket).Msg("Receipt archival enabled")
		}

		log.Info().Msg("Running in cloud mode")
	} else {
		fileStore, err := storage.NewFileStore(cfg.DataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open local store")
		}
		store = fileStore
		provider = identity.NewLocalProvider()

		log.Info().Str("data_dir", cfg.DataDir).Msg("Running in local mode")
	}
	defer store.Close(ctx)

	aiClient, err := ai.NewClient(ctx, cfg.GeminiAPIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AI client")
	}

	// Wait for the identity before opening the session; nothing can be
	// keyed without it.
	userIDs := make(chan string, 1)
	cancelIdentity, err := provider.Init(ctx, func(userID string) {
		userIDs <- userID
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity")
	}
	defer cancelIdentity()

	userID := <-userIDs
	if userID == "" {
		log.Fatal().Msg("Anonymous sign-in failed")
	}
	log.Info().Str("user_id", userID).Msg("Identity established")

	orch := chat.New(store, aiClient, archiver, log)
	session, err := chat.NewSession(ctx, userID, store, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session")
	}
	defer session.Close()

	adv := advisor.New(aiClient, log)
	chatHandler := handlers.NewChatHandler(session, store, adv, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.SendMessage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/records", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.ListRecords(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/records/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.StreamRecords(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/records/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			recordID := strings.TrimPrefix(r.URL.Path, "/api/records/")
			if recordID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Record ID is required")
				return
			}
			chatHandler.DeleteRecord(w, r, recordID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/insight", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.Insight(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// No WriteTimeout: /api/records/stream holds its connection open.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
