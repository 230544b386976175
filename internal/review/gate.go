// Package review is the human-in-the-loop suspension point. A pending review
// is a persisted ticket, not an in-memory wait: the run parks once the ticket
// row exists and resumes when a verdict lands, surviving process restarts in
// between.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/bus"
	"github.com/andreaswittus/emas/internal/drafter"
)

// Status is the ticket lifecycle: pending → resolved → consumed.
type Status string

const (
	StatusPending Status = "pending"
	// StatusResolved means a verdict landed but the orchestrator has not
	// continued the run yet.
	StatusResolved Status = "resolved"
	StatusConsumed Status = "consumed"
)

// Ticket is one suspended review, durable across restarts.
type Ticket struct {
	ID      uuid.UUID     `json:"id"`
	EmailID string        `json:"email_id"`
	Action  drafter.Action `json:"action"`
	Allowed []VerdictType `json:"allowed"`
	// State is the conversation snapshot needed to resume the run.
	State      drafter.State `json:"state"`
	Status     Status        `json:"status"`
	Verdict    *Verdict      `json:"verdict,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// TicketStore persists review tickets. Implemented by store.Store.
type TicketStore interface {
	CreateReview(ctx context.Context, t *Ticket) error
	GetReview(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// ResolveReview flips pending→resolved atomically, recording the verdict.
	// Returns ErrAlreadyResolved if the ticket is past pending.
	ResolveReview(ctx context.Context, id uuid.UUID, v Verdict) error
	MarkReviewConsumed(ctx context.Context, id uuid.UUID) error
	ListReviewsByStatus(ctx context.Context, status Status) ([]Ticket, error)
}

// Publisher announces resolved reviews so the orchestrator can resume.
type Publisher interface {
	Publish(subject string, data any) error
}

type Gate struct {
	store  TicketStore
	pub    Publisher
	logger *slog.Logger
}

func NewGate(store TicketStore, pub Publisher, logger *slog.Logger) *Gate {
	return &Gate{store: store, pub: pub, logger: logger}
}

// Open persists a pending review for the action and returns the ticket. The
// ticket must exist before anything waits on it; there is no in-memory-only
// pending state.
func (g *Gate) Open(ctx context.Context, state *drafter.State, action drafter.Action) (*Ticket, error) {
	allowed := AllowedVerdicts(action.Kind)
	if allowed == nil {
		return nil, fmt.Errorf("action kind %q is not reviewable", action.Kind)
	}

	t := &Ticket{
		ID:        uuid.New(),
		EmailID:   state.Email.ID,
		Action:    action,
		Allowed:   allowed,
		State:     *state,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.CreateReview(ctx, t); err != nil {
		return nil, fmt.Errorf("persist review: %w", err)
	}

	g.logger.Info("review opened",
		"review_id", t.ID,
		"email_id", t.EmailID,
		"action", string(action.Kind),
	)
	return t, nil
}

// Resolve applies a verdict to a pending ticket. Invalid verdicts leave the
// ticket pending and re-waiting; a second resolve is rejected rather than
// applied twice.
func (g *Gate) Resolve(ctx context.Context, id uuid.UUID, v Verdict) (*Ticket, error) {
	t, err := g.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	if err := v.Validate(t.Allowed); err != nil {
		return nil, err
	}

	if err := g.store.ResolveReview(ctx, id, v); err != nil {
		return nil, err
	}
	t.Status = StatusResolved
	t.Verdict = &v
	now := time.Now().UTC()
	t.ResolvedAt = &now

	if err := g.pub.Publish(bus.SubjectReviewResolved, bus.ReviewResolvedEvent{ReviewID: id.String()}); err != nil {
		// The verdict is durable; the startup sweep will pick the ticket up
		// even if this notification is lost.
		g.logger.Error("failed to publish review resolved", "review_id", id, "error", err)
	}

	g.logger.Info("review resolved",
		"review_id", id,
		"email_id", t.EmailID,
		"verdict", string(v.Type),
	)
	return t, nil
}
