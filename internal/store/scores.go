package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreaswittus/emas/internal/scoring"
)

// GetTopicScore fetches the acceptance record for a topic. A topic with no
// reviews yet returns a zero record, not an error.
func (s *Store) GetTopicScore(ctx context.Context, topic string) (scoring.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT topic, score, total_reviews, accepted_drafts
		FROM topic_scores WHERE topic = $1`, topic,
	)

	var rec scoring.Record
	err := row.Scan(&rec.Topic, &rec.Score, &rec.TotalReviews, &rec.AcceptedDrafts)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.Record{Topic: topic}, nil
	}
	if err != nil {
		return scoring.Record{}, fmt.Errorf("get topic score: %w", err)
	}
	return rec, nil
}

// UpsertTopicScore writes the acceptance record back.
func (s *Store) UpsertTopicScore(ctx context.Context, rec scoring.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO topic_scores (topic, score, total_reviews, accepted_drafts, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (topic)
		DO UPDATE SET score = $2, total_reviews = $3, accepted_drafts = $4, updated_at = now()`,
		rec.Topic, rec.Score, rec.TotalReviews, rec.AcceptedDrafts,
	)
	if err != nil {
		return fmt.Errorf("upsert topic score: %w", err)
	}
	return nil
}

// ListTopicScores returns all acceptance records.
func (s *Store) ListTopicScores(ctx context.Context) ([]scoring.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT topic, score, total_reviews, accepted_drafts
		FROM topic_scores ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list topic scores: %w", err)
	}
	defer rows.Close()

	var out []scoring.Record
	for rows.Next() {
		var rec scoring.Record
		if err := rows.Scan(&rec.Topic, &rec.Score, &rec.TotalReviews, &rec.AcceptedDrafts); err != nil {
			return nil, fmt.Errorf("scan topic score: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
