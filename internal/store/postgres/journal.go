package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// EventJournal implements domain.EventJournal on an append-only table keyed
// by (tx_digest, kind, entity_id). The ON CONFLICT DO NOTHING insert is what
// makes event replay after a cursor reset a no-op.
type EventJournal struct {
	pool *pgxpool.Pool
}

// NewEventJournal creates an EventJournal backed by the given pool.
func NewEventJournal(pool *pgxpool.Pool) *EventJournal {
	return &EventJournal{pool: pool}
}

// Applied reports whether an event with the given key was already journaled.
func (j *EventJournal) Applied(ctx context.Context, txDigest string, kind domain.EventKind, entityID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM applied_events
			WHERE tx_digest = $1 AND kind = $2 AND entity_id = $3
		)`

	var exists bool
	if err := j.pool.QueryRow(ctx, query, txDigest, string(kind), entityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: check journal for %s: %w", txDigest, err)
	}
	return exists, nil
}

// MarkApplied records an applied event. It returns false when the event was
// already journaled, in which case the caller must not re-apply it.
func (j *EventJournal) MarkApplied(ctx context.Context, ev domain.AppliedEvent) (bool, error) {
	const query = `
		INSERT INTO applied_events (tx_digest, kind, entity_id, payload, ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tx_digest, kind, entity_id) DO NOTHING`

	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	tag, err := j.pool.Exec(ctx, query,
		ev.TxDigest, string(ev.Kind), ev.EntityID, payload, ev.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: journal event %s: %w", ev.TxDigest, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRange returns journaled events with ledger timestamps in [from, to),
// oldest first, up to limit rows. Used by the archiver's CSV export.
func (j *EventJournal) ListRange(ctx context.Context, from, to time.Time, limit int) ([]domain.AppliedEvent, error) {
	const query = `
		SELECT tx_digest, kind, entity_id, payload, ts, applied_at
		FROM applied_events
		WHERE ts >= $1 AND ts < $2
		ORDER BY ts ASC
		LIMIT $3`

	rows, err := j.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal range: %w", err)
	}
	defer rows.Close()

	var events []domain.AppliedEvent
	for rows.Next() {
		var ev domain.AppliedEvent
		var kind string
		if err := rows.Scan(&ev.TxDigest, &kind, &ev.EntityID, &ev.Payload, &ev.Timestamp, &ev.AppliedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan journal row: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate journal rows: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.EventJournal = (*EventJournal)(nil)
