package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/andreaswittus/emas/internal/feedback"
)

// WriteTrainingExample appends one labeled review outcome. Each write carries
// a fresh id, but content-identical examples collapse on the content hash, so
// resubmitting the same verdict stores nothing new. Reports whether a row was
// inserted.
func (s *Store) WriteTrainingExample(ctx context.Context, ex feedback.Example) (bool, error) {
	email, err := json.Marshal(ex.Email)
	if err != nil {
		return false, fmt.Errorf("marshal email: %w", err)
	}
	hash := exampleHash(ex)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO training_examples (id, namespace, email_id, email, label, correction, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (content_hash) DO NOTHING`,
		ex.ID, ex.Namespace, ex.EmailID, email, ex.Label, ex.Correction, hash,
	)
	if err != nil {
		return false, fmt.Errorf("write training example: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountTrainingExamples returns example counts per label.
func (s *Store) CountTrainingExamples(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT label, count(*) FROM training_examples GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("count training examples: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func exampleHash(ex feedback.Example) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", ex.Namespace, ex.EmailID, ex.Label, ex.Correction)
	return fmt.Sprintf("%x", h.Sum(nil))
}
