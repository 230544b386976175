// Package processor orchestrates the per-email pipeline: ingest event in,
// topic classification, draft generation, the human review gate, and the
// feedback loop back into drafting.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/bus"
	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/feedback"
	"github.com/andreaswittus/emas/internal/llm"
	"github.com/andreaswittus/emas/internal/mail"
	"github.com/andreaswittus/emas/internal/review"
	"github.com/andreaswittus/emas/internal/scoring"
)

// Store is the slice of persistence the orchestrator drives directly.
type Store interface {
	GetEmail(ctx context.Context, id string) (*mail.Email, error)
	GetReview(ctx context.Context, id uuid.UUID) (*review.Ticket, error)
	MarkReviewConsumed(ctx context.Context, id uuid.UUID) error
	ListReviewsByStatus(ctx context.Context, status review.Status) ([]review.Ticket, error)
	GetTopicScore(ctx context.Context, topic string) (scoring.Record, error)
	UpsertTopicScore(ctx context.Context, rec scoring.Record) error
}

// Classifier assigns a topic to an email body.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// Drafter produces the next action for a conversation state.
type Drafter interface {
	Generate(ctx context.Context, state *drafter.State) (drafter.Action, error)
}

// Gate opens review tickets for proposed actions.
type Gate interface {
	Open(ctx context.Context, state *drafter.State, action drafter.Action) (*review.Ticket, error)
}

// Recorder persists verdicts as training signal.
type Recorder interface {
	Record(ctx context.Context, namespace string, state *drafter.State, action drafter.Action, v review.Verdict) error
}

// Notifier announces newly opened reviews. May be a no-op.
type Notifier interface {
	AnnounceReview(ctx context.Context, t *review.Ticket)
}

type Processor struct {
	store      Store
	classifier Classifier
	drafter    Drafter
	gate       Gate
	recorder   Recorder
	notifier   Notifier
	namespace  string
	logger     *slog.Logger
}

func New(store Store, classifier Classifier, d Drafter, gate Gate, recorder Recorder, notifier Notifier, namespace string, logger *slog.Logger) *Processor {
	return &Processor{
		store:      store,
		classifier: classifier,
		drafter:    d,
		gate:       gate,
		recorder:   recorder,
		notifier:   notifier,
		namespace:  namespace,
		logger:     logger,
	}
}

// HandleMailReceived is the NATS handler for emas.mail.received. It runs a
// fresh email through classification and drafting, and parks the run at the
// review gate. An ignore action or a generation failure ends the run here.
func (p *Processor) HandleMailReceived(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.MailReceivedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse mail received event", "error", err)
		return
	}

	email, err := p.store.GetEmail(ctx, evt.EmailID)
	if err != nil {
		p.logger.Error("failed to load email", "email_id", evt.EmailID, "error", err)
		return
	}

	state := &drafter.State{Email: *email}
	state.Topic = p.classifier.Classify(ctx, email.Subject+"\n\n"+email.Body)

	p.logger.Info("processing email",
		"email_id", email.ID,
		"from", email.From,
		"topic", state.Topic,
	)

	if err := p.draftAndPark(ctx, state); err != nil {
		p.logger.Error("email run aborted", "email_id", email.ID, "error", err)
	}
}

// HandleReviewResolved is the NATS handler for emas.review.resolved. It loads
// the resolved ticket and continues the suspended run.
func (p *Processor) HandleReviewResolved(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.ReviewResolvedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse review resolved event", "error", err)
		return
	}
	id, err := uuid.Parse(evt.ReviewID)
	if err != nil {
		p.logger.Error("invalid review id", "review_id", evt.ReviewID, "error", err)
		return
	}

	ticket, err := p.store.GetReview(ctx, id)
	if err != nil {
		p.logger.Error("failed to load review", "review_id", id, "error", err)
		return
	}
	if ticket.Status != review.StatusResolved {
		// Already consumed (duplicate event) or not yet resolved; nothing to do.
		p.logger.Debug("skipping review not in resolved state", "review_id", id, "status", string(ticket.Status))
		return
	}

	p.Resume(ctx, ticket)
}

// SweepResolved re-dispatches tickets that were resolved but whose runs never
// continued, closing the crash window between resolution and continuation.
// Called once at startup.
func (p *Processor) SweepResolved(ctx context.Context) error {
	tickets, err := p.store.ListReviewsByStatus(ctx, review.StatusResolved)
	if err != nil {
		return fmt.Errorf("list resolved reviews: %w", err)
	}
	for i := range tickets {
		p.logger.Info("resuming review from sweep", "review_id", tickets[i].ID)
		p.Resume(ctx, &tickets[i])
	}
	if len(tickets) > 0 {
		p.logger.Info("startup sweep complete", "resumed", len(tickets))
	}
	return nil
}

// Resume continues a suspended run with its verdict and marks the ticket
// consumed. Consumption happens last: a crash mid-resume leaves the ticket
// resolved, and the sweep retries the continuation.
func (p *Processor) Resume(ctx context.Context, ticket *review.Ticket) {
	if ticket.Verdict == nil {
		p.logger.Error("resolved ticket carries no verdict", "review_id", ticket.ID)
		return
	}

	state := ticket.State
	state.Pending = nil
	v := *ticket.Verdict

	var err error
	switch v.Type {
	case review.VerdictAccept:
		// Terminal. The draft stands as-is; acceptance is not training signal.
		p.logger.Info("draft accepted", "review_id", ticket.ID, "email_id", ticket.EmailID)
		p.scoreTopic(ctx, state.Topic, true)

	case review.VerdictIgnore:
		err = p.recorder.Record(ctx, p.namespace, &state, ticket.Action, v)
		p.logger.Info("action ignored", "review_id", ticket.ID, "email_id", ticket.EmailID)
		p.scoreTopic(ctx, state.Topic, false)

	case review.VerdictRespond:
		err = p.resumeRespond(ctx, ticket, &state, v)
		p.scoreTopic(ctx, state.Topic, false)

	case review.VerdictEdit:
		err = p.resumeEdit(ctx, ticket, &state, v)
		p.scoreTopic(ctx, state.Topic, false)
	}
	if err != nil {
		p.logger.Error("failed to continue review", "review_id", ticket.ID, "error", err)
		return
	}

	if err := p.store.MarkReviewConsumed(ctx, ticket.ID); err != nil {
		p.logger.Error("failed to mark review consumed", "review_id", ticket.ID, "error", err)
	}
}

// resumeRespond records the feedback, prepends it to the conversation, and
// re-enters drafting. The new draft opens a fresh review; cycles are uncapped.
func (p *Processor) resumeRespond(ctx context.Context, ticket *review.Ticket, state *drafter.State, v review.Verdict) error {
	if err := p.recorder.Record(ctx, p.namespace, state, ticket.Action, v); err != nil {
		// Redraft dispatch is best-effort; the in-band redraft below still runs.
		if !errors.Is(err, feedback.ErrDispatchFailed) {
			return fmt.Errorf("record respond verdict: %w", err)
		}
		p.logger.Error("redraft dispatch failed", "review_id", ticket.ID, "error", err)
	}

	state.Messages = append([]llm.Message{{
		Role:    "user",
		Content: fmt.Sprintf("Feedback on the previous %s: %s", ticket.Action.ToolName(), v.Feedback),
	}}, state.Messages...)

	return p.draftAndPark(ctx, state)
}

// resumeEdit substitutes the human's corrected action for the model's draft,
// records the correction as the training signal, and re-enters review with
// the corrected action.
func (p *Processor) resumeEdit(ctx context.Context, ticket *review.Ticket, state *drafter.State, v review.Verdict) error {
	if err := p.recorder.Record(ctx, p.namespace, state, ticket.Action, v); err != nil {
		if !errors.Is(err, feedback.ErrDispatchFailed) {
			return fmt.Errorf("record edit verdict: %w", err)
		}
		p.logger.Error("redraft dispatch failed", "review_id", ticket.ID, "error", err)
	}

	edited := *v.Edited
	next, err := p.gate.Open(ctx, state, edited)
	if err != nil {
		return fmt.Errorf("reopen review for edit: %w", err)
	}
	if p.notifier != nil {
		p.notifier.AnnounceReview(ctx, next)
	}
	return nil
}

// draftAndPark runs one generation pass and parks the resulting action at the
// review gate. Ignore actions end the run without a ticket.
func (p *Processor) draftAndPark(ctx context.Context, state *drafter.State) error {
	action, err := p.drafter.Generate(ctx, state)
	if err != nil {
		// Includes ErrGenerationFailed after retry exhaustion: the run ends
		// without a review ticket.
		return fmt.Errorf("generate action: %w", err)
	}

	if action.Kind == drafter.KindIgnore {
		p.logger.Info("email ignored by drafter", "email_id", state.Email.ID)
		return nil
	}

	ticket, err := p.gate.Open(ctx, state, action)
	if err != nil {
		return fmt.Errorf("open review: %w", err)
	}
	if p.notifier != nil {
		p.notifier.AnnounceReview(ctx, ticket)
	}
	return nil
}

// scoreTopic folds one review outcome into the topic's acceptance record.
// Scoring is advisory; failures are logged and never fail the run.
func (p *Processor) scoreTopic(ctx context.Context, topic string, accepted bool) {
	if topic == "" {
		return
	}
	rec, err := p.store.GetTopicScore(ctx, topic)
	if err != nil {
		p.logger.Error("failed to load topic score", "topic", topic, "error", err)
		return
	}
	if err := p.store.UpsertTopicScore(ctx, scoring.Apply(rec, accepted)); err != nil {
		p.logger.Error("failed to store topic score", "topic", topic, "error", err)
	}
}
