package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/review"
)

// listReviews handles GET /api/v1/reviews?status=pending.
func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	status := review.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = review.StatusPending
	}
	switch status {
	case review.StatusPending, review.StatusResolved, review.StatusConsumed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	tickets, err := s.store.ListReviewsByStatus(r.Context(), status)
	if err != nil {
		s.logger.Error("failed to list reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	if tickets == nil {
		tickets = []review.Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": tickets,
		"count":   len(tickets),
	})
}

// getReview handles GET /api/v1/reviews/{id}.
func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	ticket, err := s.store.GetReview(r.Context(), id)
	if errors.Is(err, review.ErrNotFound) {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load review", "review_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load review")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// VerdictRequest is the POST /reviews/{id}/verdict payload.
type VerdictRequest struct {
	Type     string          `json:"type"`
	Feedback string          `json:"feedback,omitempty"`
	Edited   *drafter.Action `json:"edited,omitempty"`
}

// postVerdict handles POST /api/v1/reviews/{id}/verdict.
func (s *Server) postVerdict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	var req VerdictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	v := review.Verdict{
		Type:     review.VerdictType(req.Type),
		Feedback: req.Feedback,
		Edited:   req.Edited,
	}

	ticket, err := s.resolver.Resolve(r.Context(), id, v)
	switch {
	case errors.Is(err, review.ErrNotFound):
		writeError(w, http.StatusNotFound, "review not found")
	case errors.Is(err, review.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "review already resolved")
	case errors.Is(err, review.ErrInvalidVerdict):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.logger.Error("failed to resolve review", "review_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve review")
	default:
		writeJSON(w, http.StatusOK, ticket)
	}
}

// ingestSync handles POST /api/v1/ingest/sync.
func (s *Server) ingestSync(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, "mail source not configured")
		return
	}
	res, err := s.ingestor.Sync(r.Context())
	if err != nil {
		s.logger.Error("manual sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// stats handles GET /api/v1/stats.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	emails, err := s.store.CountEmails(ctx)
	if err != nil {
		s.logger.Error("failed to count emails", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	reviews, err := s.store.CountReviewsByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	examples, err := s.store.CountTrainingExamples(ctx)
	if err != nil {
		s.logger.Error("failed to count training examples", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	scores, err := s.store.ListTopicScores(ctx)
	if err != nil {
		s.logger.Error("failed to list topic scores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"emails":            emails,
		"reviews":           reviews,
		"training_examples": examples,
		"topic_scores":      scores,
	})
}
