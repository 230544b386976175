// Package feedback turns review verdicts into training examples and redraft
// tasks for the out-of-process reflection job.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/bus"
	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/mail"
	"github.com/andreaswittus/emas/internal/review"
)

// ErrDispatchFailed marks a redraft task the dispatcher refused. The training
// example written beforehand is not rolled back; recording and dispatch are
// deliberately not transactional together.
var ErrDispatchFailed = errors.New("redraft dispatch failed")

// Training example labels.
const (
	LabelAccepted = "accepted"
	LabelIgnored  = "ignored"
	LabelRejected = "rejected-with-feedback"
)

// Example is one labeled review outcome. Written once per email content; the
// store deduplicates by content equality, not by key.
type Example struct {
	ID         uuid.UUID  `json:"id"`
	Namespace  string     `json:"namespace"`
	EmailID    string     `json:"email_id"`
	Email      mail.Email `json:"email"`
	Label      string     `json:"label"`
	Correction string     `json:"correction,omitempty"`
}

// ExampleStore is the append-only training sink. WriteTrainingExample reports
// whether a new row was stored (false when content-identical to an earlier one).
type ExampleStore interface {
	WriteTrainingExample(ctx context.Context, ex Example) (bool, error)
}

// Publisher dispatches redraft tasks. Fire and forget; no retries here.
type Publisher interface {
	Publish(subject string, data any) error
}

type Recorder struct {
	store   ExampleStore
	pub     Publisher
	user    string
	enabled bool
	logger  *slog.Logger
}

func NewRecorder(store ExampleStore, pub Publisher, user string, enabled bool, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, pub: pub, user: user, enabled: enabled, logger: logger}
}

// Enabled reports whether feedback recording is switched on.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// Record persists the verdict as a training example and, for corrective
// verdicts, dispatches one redraft task. Idempotent per email content:
// resubmitting the same verdict collapses in the store.
func (r *Recorder) Record(ctx context.Context, namespace string, state *drafter.State, action drafter.Action, v review.Verdict) error {
	if !r.enabled {
		return nil
	}

	label, correction := classify(r.user, action, v)
	ex := Example{
		ID:         uuid.New(),
		Namespace:  namespace,
		EmailID:    state.Email.ID,
		Email:      state.Email,
		Label:      label,
		Correction: correction,
	}

	inserted, err := r.store.WriteTrainingExample(ctx, ex)
	if err != nil {
		return fmt.Errorf("write training example: %w", err)
	}
	r.logger.Info("verdict recorded",
		"email_id", state.Email.ID,
		"label", label,
		"deduplicated", !inserted,
	)

	if correction == "" {
		return nil
	}

	msgs, err := json.Marshal(state.Messages)
	if err != nil {
		return fmt.Errorf("snapshot messages: %w", err)
	}
	task := bus.RedraftTask{
		AssistantID:  namespace,
		EmailID:      state.Email.ID,
		Messages:     msgs,
		Feedback:     correction,
		PromptScopes: promptScopes(action.Kind),
	}
	if err := r.pub.Publish(bus.SubjectRedraftRequested, task); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	r.logger.Info("redraft dispatched", "email_id", state.Email.ID, "scopes", task.PromptScopes)
	return nil
}

// classify maps a verdict to its training label and correction text. Edits
// record the human's corrected content as the signal; the superseded draft is
// treated as unused.
func classify(user string, action drafter.Action, v review.Verdict) (label, correction string) {
	switch v.Type {
	case review.VerdictAccept:
		return LabelAccepted, ""
	case review.VerdictIgnore:
		return LabelIgnored, ""
	case review.VerdictRespond:
		if action.Kind == drafter.KindQuestion {
			return LabelRejected, fmt.Sprintf("%s responded in this way: %s", user, v.Feedback)
		}
		return LabelRejected, fmt.Sprintf("%s interrupted and gave this feedback: %s", user, v.Feedback)
	case review.VerdictEdit:
		return LabelRejected, fmt.Sprintf("A better response would have been: %s", v.Edited.Content)
	}
	return "", ""
}

// promptScopes names the prompt sections the reflection job may revise for
// the corrected action kind.
func promptScopes(kind drafter.Kind) []string {
	if kind == drafter.KindQuestion {
		return []string{"background"}
	}
	return []string{"tone", "email", "background"}
}
