package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreaswittus/emas/internal/api"
	"github.com/andreaswittus/emas/internal/bus"
	"github.com/andreaswittus/emas/internal/config"
	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/feedback"
	"github.com/andreaswittus/emas/internal/llm"
	"github.com/andreaswittus/emas/internal/mail"
	"github.com/andreaswittus/emas/internal/notify"
	"github.com/andreaswittus/emas/internal/processor"
	"github.com/andreaswittus/emas/internal/review"
	"github.com/andreaswittus/emas/internal/store"
	"github.com/andreaswittus/emas/internal/topics"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("emas starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// LLM client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	slog.Info("llm client ready", "model", cfg.OpenAIModel)

	// NATS
	busClient, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Mail source (optional — without it, mail arrives only via manual inserts)
	var ingestor *mail.Ingestor
	if cfg.GraphTenantID != "" && cfg.GraphClientID != "" && cfg.GraphClientSecret != "" && cfg.MailboxAddress != "" {
		graph := mail.NewGraphClient(ctx, cfg.GraphTenantID, cfg.GraphClientID, cfg.GraphClientSecret, cfg.MailboxAddress)
		ingestor = mail.NewIngestor(graph, db, busClient, cfg.MailFolder, cfg.MailPageSize, slog.Default())
		slog.Info("mail source ready", "mailbox", cfg.MailboxAddress, "folder", cfg.MailFolder)
	} else {
		slog.Warn("mail source not configured — /api/v1/ingest/sync disabled")
	}

	// Pipeline components
	classifier := topics.NewClassifier(llmClient, slog.Default())
	d := drafter.New(llmClient, db, drafter.Identity{
		AssistantID: cfg.AssistantID,
		Name:        cfg.AssistantName,
		FullName:    cfg.AssistantFull,
	}, slog.Default())
	gate := review.NewGate(db, busClient, slog.Default())
	recorder := feedback.NewRecorder(db, busClient, cfg.AssistantName, cfg.FeedbackEnabled, slog.Default())
	poster := notify.NewPoster(cfg.NotifyWebhookURL, cfg.ReviewBaseURL, slog.Default())
	if !poster.Enabled() {
		slog.Warn("notifier not configured — reviewers must poll the API")
	}

	proc := processor.New(db, classifier, d, gate, recorder, poster, cfg.AssistantID, slog.Default())

	// Resume runs whose verdicts landed while we were down.
	if err := proc.SweepResolved(ctx); err != nil {
		slog.Error("startup sweep failed", "error", err)
		os.Exit(1)
	}

	// Subscriptions
	if err := busClient.Subscribe(bus.SubjectMailReceived, proc.HandleMailReceived); err != nil {
		slog.Error("failed to subscribe to mail events", "error", err)
		os.Exit(1)
	}
	if err := busClient.Subscribe(bus.SubjectReviewResolved, proc.HandleReviewResolved); err != nil {
		slog.Error("failed to subscribe to review events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	var apiIngestor api.Ingestor
	if ingestor != nil {
		apiIngestor = ingestor
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, db, gate, apiIngestor, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := busClient.Publish(bus.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"assistant": cfg.AssistantID,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("emas ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("emas stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
