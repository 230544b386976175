// Package api is the HTTP surface: health, review listing and verdicts,
// manual ingest, and stats.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/mail"
	"github.com/andreaswittus/emas/internal/review"
	"github.com/andreaswittus/emas/internal/scoring"
)

// Store is the read-side persistence the API serves from.
type Store interface {
	GetReview(ctx context.Context, id uuid.UUID) (*review.Ticket, error)
	ListReviewsByStatus(ctx context.Context, status review.Status) ([]review.Ticket, error)
	CountReviewsByStatus(ctx context.Context) (map[review.Status]int, error)
	CountEmails(ctx context.Context) (int, error)
	CountTrainingExamples(ctx context.Context) (map[string]int, error)
	ListTopicScores(ctx context.Context) ([]scoring.Record, error)
}

// Resolver applies verdicts to pending reviews.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID, v review.Verdict) (*review.Ticket, error)
}

// Ingestor triggers a mailbox sync on demand.
type Ingestor interface {
	Sync(ctx context.Context) (*mail.SyncResult, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	store    Store
	resolver Resolver
	ingestor Ingestor
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, store Store, resolver Resolver, ingestor Ingestor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		store:    store,
		resolver: resolver,
		ingestor: ingestor,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/reviews", s.listReviews)
		r.Get("/reviews/{id}", s.getReview)
		r.Post("/reviews/{id}/verdict", s.postVerdict)
		r.Post("/ingest/sync", s.ingestSync)
		r.Get("/stats", s.stats)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the expected bearer token.
// An empty token disables auth, for local development only.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "emas",
		"status":  "running",
	})
}
