// Package store is the Postgres persistence layer. One pgx pool, one schema,
// method sets sliced into the small interfaces each consumer declares.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema. Idempotent; runs at startup.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id          TEXT PRIMARY KEY,
			thread_id   TEXT NOT NULL DEFAULT '',
			from_email  TEXT NOT NULL,
			to_email    TEXT NOT NULL DEFAULT '',
			subject     TEXT NOT NULL DEFAULT '',
			body        TEXT NOT NULL DEFAULT '',
			send_time   TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS preferences (
			namespace   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			content     TEXT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_reviews (
			id          UUID PRIMARY KEY,
			email_id    TEXT NOT NULL,
			action      JSONB NOT NULL,
			allowed     TEXT[] NOT NULL,
			state       JSONB NOT NULL,
			status      TEXT NOT NULL DEFAULT 'pending',
			verdict     JSONB,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS pending_reviews_status_idx ON pending_reviews (status)`,
		`CREATE TABLE IF NOT EXISTS training_examples (
			id           UUID PRIMARY KEY,
			namespace    TEXT NOT NULL,
			email_id     TEXT NOT NULL,
			email        JSONB NOT NULL,
			label        TEXT NOT NULL,
			correction   TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL UNIQUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS topic_scores (
			topic           TEXT PRIMARY KEY,
			score           DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_reviews   INT NOT NULL DEFAULT 0,
			accepted_drafts INT NOT NULL DEFAULT 0,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
