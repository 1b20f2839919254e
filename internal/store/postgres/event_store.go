package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// EventStore implements domain.EventStore as an append-only JSONB journal.
// The full event is stored as its JSON payload; kind and timestamp are
// lifted into columns for filtering.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append journals one event and returns its assigned sequence number.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) (int64, error) {
	ev.Seq = 0 // assigned here, never trusted from the caller
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal event: %w", err)
	}

	var seq int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO events (kind, at, payload) VALUES ($1, $2, $3) RETURNING seq`,
		string(ev.Kind), ev.At, payload,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("postgres: append event %s: %w", ev.Kind, err)
	}
	return seq, nil
}

// ListSince returns up to limit events with sequence numbers strictly
// greater than seq, in order.
func (s *EventStore) ListSince(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT seq, payload FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`,
		seq, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var s int64
		var payload []byte
		if err := rows.Scan(&s, &payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event %d: %w", s, err)
		}
		ev.Seq = s
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest assigned sequence number, or zero when the
// journal is empty.
func (s *EventStore) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("postgres: last event seq: %w", err)
	}
	return seq, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
