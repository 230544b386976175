package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/mail"
	"github.com/andreaswittus/emas/internal/review"
	"github.com/andreaswittus/emas/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	tickets map[uuid.UUID]*review.Ticket
}

func newFakeStore() *fakeStore {
	return &fakeStore{tickets: make(map[uuid.UUID]*review.Ticket)}
}

func (f *fakeStore) GetReview(ctx context.Context, id uuid.UUID) (*review.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, review.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListReviewsByStatus(ctx context.Context, status review.Status) ([]review.Ticket, error) {
	var out []review.Ticket
	for _, t := range f.tickets {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) CountReviewsByStatus(ctx context.Context) (map[review.Status]int, error) {
	counts := make(map[review.Status]int)
	for _, t := range f.tickets {
		counts[t.Status]++
	}
	return counts, nil
}

func (f *fakeStore) CountEmails(ctx context.Context) (int, error) { return 3, nil }

func (f *fakeStore) CountTrainingExamples(ctx context.Context) (map[string]int, error) {
	return map[string]int{"accepted": 2}, nil
}

func (f *fakeStore) ListTopicScores(ctx context.Context) ([]scoring.Record, error) {
	return []scoring.Record{{Topic: "cancel", Score: 0.5}}, nil
}

// fakeResolver mirrors the gate's validation against the stored ticket.
type fakeResolver struct {
	store *fakeStore
}

func (f *fakeResolver) Resolve(ctx context.Context, id uuid.UUID, v review.Verdict) (*review.Ticket, error) {
	t, ok := f.store.tickets[id]
	if !ok {
		return nil, review.ErrNotFound
	}
	if t.Status != review.StatusPending {
		return nil, review.ErrAlreadyResolved
	}
	if err := v.Validate(t.Allowed); err != nil {
		return nil, err
	}
	t.Status = review.StatusResolved
	t.Verdict = &v
	return t, nil
}

type fakeIngestor struct{ res *mail.SyncResult }

func (f *fakeIngestor) Sync(ctx context.Context) (*mail.SyncResult, error) { return f.res, nil }

func newTestServer(store *fakeStore) *Server {
	return NewServer(8810, "secret", store, &fakeResolver{store: store}, &fakeIngestor{res: &mail.SyncResult{Fetched: 5, New: 2}}, discardLogger())
}

func pendingTicket(store *fakeStore) *review.Ticket {
	t := &review.Ticket{
		ID:      uuid.New(),
		EmailID: "e1",
		Action:  drafter.Action{Kind: drafter.KindResponseDraft, Content: "draft"},
		Allowed: review.AllowedVerdicts(drafter.KindResponseDraft),
		Status:  review.StatusPending,
	}
	store.tickets[t.ID] = t
	return t
}

func doRequest(srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(newFakeStore())

	w := doRequest(srv, "GET", "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestReviewsRequireAuth(t *testing.T) {
	srv := newTestServer(newFakeStore())

	if w := doRequest(srv, "GET", "/api/v1/reviews", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := doRequest(srv, "GET", "/api/v1/reviews", nil, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := doRequest(srv, "GET", "/api/v1/reviews", nil, "secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}
}

func TestListReviews_DefaultsToPending(t *testing.T) {
	store := newFakeStore()
	pendingTicket(store)
	srv := newTestServer(store)

	w := doRequest(srv, "GET", "/api/v1/reviews", nil, "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 pending review, got %d", body.Count)
	}
}

func TestListReviews_UnknownStatus(t *testing.T) {
	srv := newTestServer(newFakeStore())
	if w := doRequest(srv, "GET", "/api/v1/reviews?status=bogus", nil, "secret"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetReview(t *testing.T) {
	store := newFakeStore()
	ticket := pendingTicket(store)
	srv := newTestServer(store)

	w := doRequest(srv, "GET", "/api/v1/reviews/"+ticket.ID.String(), nil, "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got review.Ticket
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != ticket.ID {
		t.Errorf("wrong ticket returned: %s", got.ID)
	}

	if w := doRequest(srv, "GET", "/api/v1/reviews/"+uuid.NewString(), nil, "secret"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown review, got %d", w.Code)
	}
	if w := doRequest(srv, "GET", "/api/v1/reviews/not-a-uuid", nil, "secret"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestPostVerdict_StatusCodes(t *testing.T) {
	store := newFakeStore()
	ticket := pendingTicket(store)
	srv := newTestServer(store)
	path := "/api/v1/reviews/" + ticket.ID.String() + "/verdict"

	// 422: respond without feedback is malformed for the verdict set.
	if w := doRequest(srv, "POST", path, VerdictRequest{Type: "respond"}, "secret"); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}

	// 200: valid accept.
	if w := doRequest(srv, "POST", path, VerdictRequest{Type: "accept"}, "secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// 409: second verdict.
	if w := doRequest(srv, "POST", path, VerdictRequest{Type: "ignore"}, "secret"); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}

	// 404: unknown ticket.
	unknown := "/api/v1/reviews/" + uuid.NewString() + "/verdict"
	if w := doRequest(srv, "POST", unknown, VerdictRequest{Type: "accept"}, "secret"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	// 400: malformed body.
	req := httptest.NewRequest("POST", path, bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestIngestSync(t *testing.T) {
	srv := newTestServer(newFakeStore())

	w := doRequest(srv, "POST", "/api/v1/ingest/sync", nil, "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res mail.SyncResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 5 || res.New != 2 {
		t.Errorf("unexpected sync result: %+v", res)
	}
}

func TestIngestSync_NoSourceConfigured(t *testing.T) {
	store := newFakeStore()
	srv := NewServer(8810, "secret", store, &fakeResolver{store: store}, nil, discardLogger())

	if w := doRequest(srv, "POST", "/api/v1/ingest/sync", nil, "secret"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestStats(t *testing.T) {
	store := newFakeStore()
	pendingTicket(store)
	srv := newTestServer(store)

	w := doRequest(srv, "GET", "/api/v1/stats", nil, "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Emails  int                   `json:"emails"`
		Reviews map[string]int        `json:"reviews"`
		Scores  []scoring.Record      `json:"topic_scores"`
		Labels  map[string]int        `json:"training_examples"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Emails != 3 || body.Reviews["pending"] != 1 {
		t.Errorf("unexpected stats: %+v", body)
	}
	if len(body.Scores) != 1 || body.Scores[0].Topic != "cancel" {
		t.Errorf("topic scores missing: %+v", body.Scores)
	}
}
