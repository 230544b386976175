package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/mail"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memTickets is an in-memory TicketStore mirroring the Postgres semantics.
type memTickets struct {
	tickets map[uuid.UUID]*Ticket
}

func newMemTickets() *memTickets {
	return &memTickets{tickets: make(map[uuid.UUID]*Ticket)}
}

func (m *memTickets) CreateReview(ctx context.Context, t *Ticket) error {
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *memTickets) GetReview(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTickets) ResolveReview(ctx context.Context, id uuid.UUID, v Verdict) error {
	t, ok := m.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusPending {
		return ErrAlreadyResolved
	}
	t.Status = StatusResolved
	t.Verdict = &v
	return nil
}

func (m *memTickets) MarkReviewConsumed(ctx context.Context, id uuid.UUID) error {
	t, ok := m.tickets[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = StatusConsumed
	return nil
}

func (m *memTickets) ListReviewsByStatus(ctx context.Context, status Status) ([]Ticket, error) {
	var out []Ticket
	for _, t := range m.tickets {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (f *fakePublisher) Publish(subject string, data any) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func draftState() *drafter.State {
	return &drafter.State{Email: mail.Email{ID: "e1", Subject: "Cancel", From: "x@y.com"}}
}

func TestAllowedVerdicts(t *testing.T) {
	tests := []struct {
		kind drafter.Kind
		want int
	}{
		{drafter.KindQuestion, 2},
		{drafter.KindNewDraft, 4},
		{drafter.KindResponseDraft, 4},
		{drafter.KindIgnore, 0},
	}
	for _, tt := range tests {
		if got := AllowedVerdicts(tt.kind); len(got) != tt.want {
			t.Errorf("AllowedVerdicts(%q) = %v, want %d entries", tt.kind, got, tt.want)
		}
	}
}

func TestValidate_QuestionRejectsAcceptAndEdit(t *testing.T) {
	allowed := AllowedVerdicts(drafter.KindQuestion)

	for _, v := range []Verdict{
		{Type: VerdictAccept},
		{Type: VerdictEdit, Edited: &drafter.Action{Kind: drafter.KindResponseDraft, Content: "fix"}},
	} {
		if err := v.Validate(allowed); !errors.Is(err, ErrInvalidVerdict) {
			t.Errorf("expected ErrInvalidVerdict for %q on question, got %v", v.Type, err)
		}
	}

	if err := (Verdict{Type: VerdictRespond, Feedback: "ask for the order number"}).Validate(allowed); err != nil {
		t.Errorf("respond should be allowed on question: %v", err)
	}
	if err := (Verdict{Type: VerdictIgnore}).Validate(allowed); err != nil {
		t.Errorf("ignore should be allowed on question: %v", err)
	}
}

func TestValidate_DraftAllowsAllFour(t *testing.T) {
	allowed := AllowedVerdicts(drafter.KindResponseDraft)

	verdicts := []Verdict{
		{Type: VerdictAccept},
		{Type: VerdictIgnore},
		{Type: VerdictRespond, Feedback: "too formal"},
		{Type: VerdictEdit, Edited: &drafter.Action{Kind: drafter.KindResponseDraft, Content: "better text"}},
	}
	for _, v := range verdicts {
		if err := v.Validate(allowed); err != nil {
			t.Errorf("expected %q allowed on draft, got %v", v.Type, err)
		}
	}
}

func TestValidate_PayloadShape(t *testing.T) {
	allowed := AllowedVerdicts(drafter.KindResponseDraft)

	tests := []struct {
		name string
		v    Verdict
	}{
		{"respond without feedback", Verdict{Type: VerdictRespond}},
		{"edit without action", Verdict{Type: VerdictEdit}},
		{"edit with empty content", Verdict{Type: VerdictEdit, Edited: &drafter.Action{Kind: drafter.KindResponseDraft}}},
		{"edit with question action", Verdict{Type: VerdictEdit, Edited: &drafter.Action{Kind: drafter.KindQuestion, Content: "?"}}},
		{"accept with feedback", Verdict{Type: VerdictAccept, Feedback: "nice"}},
		{"unknown type", Verdict{Type: "approve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.v.Validate(allowed); !errors.Is(err, ErrInvalidVerdict) {
				t.Errorf("expected ErrInvalidVerdict, got %v", err)
			}
		})
	}
}

func TestGate_OpenPersistsPendingTicket(t *testing.T) {
	store := newMemTickets()
	gate := NewGate(store, &fakePublisher{}, discardLogger())

	action := drafter.Action{Kind: drafter.KindResponseDraft, Content: "draft"}
	ticket, err := gate.Open(context.Background(), draftState(), action)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := store.GetReview(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("ticket not persisted: %v", err)
	}
	if stored.Status != StatusPending {
		t.Errorf("expected pending status, got %q", stored.Status)
	}
	if stored.EmailID != "e1" {
		t.Errorf("unexpected email id %q", stored.EmailID)
	}
	if len(stored.Allowed) != 4 {
		t.Errorf("expected full verdict set for draft, got %v", stored.Allowed)
	}
}

func TestGate_OpenRejectsIgnoreAction(t *testing.T) {
	gate := NewGate(newMemTickets(), &fakePublisher{}, discardLogger())

	if _, err := gate.Open(context.Background(), draftState(), drafter.Action{Kind: drafter.KindIgnore}); err == nil {
		t.Fatal("ignore actions must not open reviews")
	}
}

func TestGate_ResolveExactlyOnce(t *testing.T) {
	store := newMemTickets()
	pub := &fakePublisher{}
	gate := NewGate(store, pub, discardLogger())

	ticket, err := gate.Open(context.Background(), draftState(), drafter.Action{Kind: drafter.KindResponseDraft, Content: "draft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := gate.Resolve(context.Background(), ticket.ID, Verdict{Type: VerdictAccept})
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if resolved.Status != StatusResolved || resolved.Verdict == nil {
		t.Errorf("ticket not marked resolved: %+v", resolved)
	}
	if len(pub.subjects) != 1 {
		t.Errorf("expected one resolved event, got %d", len(pub.subjects))
	}

	// Second resolve is rejected.
	if _, err := gate.Resolve(context.Background(), ticket.ID, Verdict{Type: VerdictIgnore}); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if len(pub.subjects) != 1 {
		t.Error("second resolve must not publish")
	}
}

func TestGate_InvalidVerdictLeavesTicketPending(t *testing.T) {
	store := newMemTickets()
	gate := NewGate(store, &fakePublisher{}, discardLogger())

	ticket, err := gate.Open(context.Background(), draftState(), drafter.Action{Kind: drafter.KindQuestion, Content: "which order?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := gate.Resolve(context.Background(), ticket.ID, Verdict{Type: VerdictAccept}); !errors.Is(err, ErrInvalidVerdict) {
		t.Fatalf("expected ErrInvalidVerdict, got %v", err)
	}

	stored, _ := store.GetReview(context.Background(), ticket.ID)
	if stored.Status != StatusPending {
		t.Errorf("ticket should stay pending after invalid verdict, got %q", stored.Status)
	}

	// The suspension re-waits; a valid verdict still lands.
	if _, err := gate.Resolve(context.Background(), ticket.ID, Verdict{Type: VerdictRespond, Feedback: "ask for the item number"}); err != nil {
		t.Fatalf("valid verdict after invalid one failed: %v", err)
	}
}

func TestGate_ResolveUnknownTicket(t *testing.T) {
	gate := NewGate(newMemTickets(), &fakePublisher{}, discardLogger())

	if _, err := gate.Resolve(context.Background(), uuid.New(), Verdict{Type: VerdictAccept}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
