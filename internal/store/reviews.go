package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreaswittus/emas/internal/drafter"
	"github.com/andreaswittus/emas/internal/review"
)

// CreateReview persists a new pending ticket.
func (s *Store) CreateReview(ctx context.Context, t *review.Ticket) error {
	action, err := json.Marshal(t.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	state, err := json.Marshal(t.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	allowed := make([]string, len(t.Allowed))
	for i, v := range t.Allowed {
		allowed[i] = string(v)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pending_reviews (id, email_id, action, allowed, state, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.EmailID, action, allowed, state, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetReview loads one ticket by id.
func (s *Store) GetReview(ctx context.Context, id uuid.UUID) (*review.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email_id, action, allowed, state, status, verdict, created_at, resolved_at
		FROM pending_reviews WHERE id = $1`, id,
	)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", review.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return t, nil
}

// ResolveReview flips pending→resolved atomically. The status guard in the
// WHERE clause makes concurrent resolves lose cleanly instead of overwriting.
func (s *Store) ResolveReview(ctx context.Context, id uuid.UUID, v review.Verdict) error {
	verdict, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE pending_reviews
		SET status = 'resolved', verdict = $1, resolved_at = now()
		WHERE id = $2 AND status = 'pending'`,
		verdict, id,
	)
	if err != nil {
		return fmt.Errorf("resolve review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pending_reviews WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check review: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", review.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %s", review.ErrAlreadyResolved, id)
	}
	return nil
}

// MarkReviewConsumed records that the orchestrator continued the run for this
// ticket. Consumed tickets are skipped by the startup sweep.
func (s *Store) MarkReviewConsumed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pending_reviews SET status = 'consumed' WHERE id = $1 AND status = 'resolved'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark review consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", review.ErrNotFound, id)
	}
	return nil
}

// ListReviewsByStatus returns tickets in a lifecycle state, oldest first.
func (s *Store) ListReviewsByStatus(ctx context.Context, status review.Status) ([]review.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email_id, action, allowed, state, status, verdict, created_at, resolved_at
		FROM pending_reviews WHERE status = $1
		ORDER BY created_at ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []review.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountReviewsByStatus returns ticket counts keyed by lifecycle state.
func (s *Store) CountReviewsByStatus(ctx context.Context) (map[review.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM pending_reviews GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	defer rows.Close()

	counts := make(map[review.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[review.Status(status)] = n
	}
	return counts, rows.Err()
}

func scanTicket(row pgx.Row) (*review.Ticket, error) {
	var (
		t          review.Ticket
		action     []byte
		state      []byte
		allowed    []string
		status     string
		verdict    []byte
		resolvedAt *time.Time
	)
	err := row.Scan(&t.ID, &t.EmailID, &action, &allowed, &state, &status, &verdict, &t.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(action, &t.Action); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	var st drafter.State
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	t.State = st
	for _, v := range allowed {
		t.Allowed = append(t.Allowed, review.VerdictType(v))
	}
	t.Status = review.Status(status)
	if verdict != nil {
		var v review.Verdict
		if err := json.Unmarshal(verdict, &v); err != nil {
			return nil, fmt.Errorf("unmarshal verdict: %w", err)
		}
		t.Verdict = &v
	}
	t.ResolvedAt = resolvedAt
	return &t, nil
}
