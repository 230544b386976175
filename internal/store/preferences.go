package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetPreference fetches one preference document. The bool reports presence;
// a missing key is not an error.
func (s *Store) GetPreference(ctx context.Context, namespace, kind string) (string, bool, error) {
	var content string
	err := s.pool.QueryRow(ctx, `
		SELECT content FROM preferences WHERE namespace = $1 AND kind = $2`,
		namespace, kind,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s/%s: %w", namespace, kind, err)
	}
	return content, true, nil
}

// PutPreference writes a preference document, replacing any prior content.
func (s *Store) PutPreference(ctx context.Context, namespace, kind, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (namespace, kind, content, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, kind)
		DO UPDATE SET content = $3, updated_at = now()`,
		namespace, kind, content,
	)
	if err != nil {
		return fmt.Errorf("put preference %s/%s: %w", namespace, kind, err)
	}
	return nil
}
