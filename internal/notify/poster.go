// Package notify posts pending-review announcements to a webhook so a human
// sees new work without polling the API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/review"
)

type Poster struct {
	webhookURL string
	reviewBase string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPoster builds a webhook poster. An empty webhookURL disables posting;
// calls become no-ops so callers never need to branch.
func NewPoster(webhookURL, reviewBase string, logger *slog.Logger) *Poster {
	return &Poster{
		webhookURL: webhookURL,
		reviewBase: strings.TrimRight(reviewBase, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (p *Poster) Enabled() bool {
	return p.webhookURL != ""
}

type payload struct {
	Text string `json:"text"`
}

// AnnounceReview posts a short summary of a newly opened review. Failures are
// logged and swallowed: the ticket is already durable and reachable via the
// API, so a lost notification costs nothing but latency.
func (p *Poster) AnnounceReview(ctx context.Context, t *review.Ticket) {
	if !p.Enabled() {
		return
	}

	text := fmt.Sprintf("Review needed [%s]: %s\nFrom: %s\nSubject: %s\n%s",
		actionLabel(t.Action.Kind),
		preview(t.Action.Content, 200),
		t.State.Email.From,
		t.State.Email.Subject,
		p.reviewURL(t),
	)

	body, err := json.Marshal(payload{Text: text})
	if err != nil {
		p.logger.Error("failed to marshal notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("notification post failed", "review_id", t.ID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		p.logger.Error("notification rejected", "review_id", t.ID, "status", resp.StatusCode)
		return
	}
	p.logger.Debug("review announced", "review_id", t.ID)
}

func (p *Poster) reviewURL(t *review.Ticket) string {
	if p.reviewBase == "" {
		return t.ID.String()
	}
	return fmt.Sprintf("%s/reviews/%s", p.reviewBase, t.ID)
}

func actionLabel(k drafter.Kind) string {
	switch k {
	case drafter.KindNewDraft:
		return "new draft"
	case drafter.KindResponseDraft:
		return "reply draft"
	case drafter.KindQuestion:
		return "question"
	}
	return string(k)
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
