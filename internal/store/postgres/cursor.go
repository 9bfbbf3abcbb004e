package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// CursorStore implements domain.CursorStore on a single-row-per-source
// table. Persisting the cursor is what lets a restarted indexer resume where
// it left off instead of re-reading the retained stream from the beginning.
type CursorStore struct {
	pool *pgxpool.Pool
}

// NewCursorStore creates a CursorStore backed by the given pool.
func NewCursorStore(pool *pgxpool.Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Get returns the stored cursor for a source, or "" when the source has
// never been polled.
func (s *CursorStore) Get(ctx context.Context, source string) (string, error) {
	var cursor string
	err := s.pool.QueryRow(ctx,
		"SELECT cursor FROM event_cursors WHERE source = $1", source,
	).Scan(&cursor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("postgres: get cursor %s: %w", source, err)
	}
	return cursor, nil
}

// Set stores the cursor for a source. Called only after every event up to
// and including that position has been applied.
func (s *CursorStore) Set(ctx context.Context, source, cursor string) error {
	const query = `
		INSERT INTO event_cursors (source, cursor, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (source) DO UPDATE SET
			cursor     = EXCLUDED.cursor,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, source, cursor); err != nil {
		return fmt.Errorf("postgres: set cursor %s: %w", source, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CursorStore = (*CursorStore)(nil)
