package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreaswittus/emas/internal/mail"
)

// ErrEmailNotFound is returned when no email row matches the id.
var ErrEmailNotFound = errors.New("email not found")

// UpsertEmail stores the email keyed by its source message id and reports
// whether the row is new. Re-syncing the same mailbox page is a no-op.
func (s *Store) UpsertEmail(ctx context.Context, e mail.Email) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO emails (id, thread_id, from_email, to_email, subject, body, send_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.ThreadID, e.From, e.To, e.Subject, e.Body, e.SendTime,
	)
	if err != nil {
		return false, fmt.Errorf("upsert email: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetEmail loads one email by id.
func (s *Store) GetEmail(ctx context.Context, id string) (*mail.Email, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, from_email, to_email, subject, body, send_time
		FROM emails WHERE id = $1`, id,
	)

	var e mail.Email
	err := row.Scan(&e.ID, &e.ThreadID, &e.From, &e.To, &e.Subject, &e.Body, &e.SendTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEmailNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	return &e, nil
}

// CountEmails returns the total number of stored emails.
func (s *Store) CountEmails(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM emails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return n, nil
}
