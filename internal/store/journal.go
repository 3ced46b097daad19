package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/triadic/internal/canon"
	"github.com/roach88/triadic/internal/event"
)

// AppendEvent writes ev to the journal. Re-appending a seq that is already
// stored is a no-op.
func (s *Store) AppendEvent(ctx context.Context, ev event.Event) error {
	payload, err := canon.Marshal(ev)
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (seq, tick, kind, process_id, payload, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		ev.Tick,
		string(ev.Kind),
		ev.ProcessID,
		string(payload),
		canon.HashBytes(canon.DomainEvent, payload),
	)
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	return nil
}

// EventFilter narrows ReadEvents. Zero fields match everything.
type EventFilter struct {
	Kinds     []event.Kind
	ProcessID string
	// AfterSeq skips events with seq <= AfterSeq.
	AfterSeq int64
	Limit    int
}

// ReadEvents returns journal events in seq order. Returns an empty slice,
// not nil, when nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f EventFilter) ([]event.Event, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "seq > ?")
	args = append(args, f.AfterSeq)
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ",")+")")
	}
	if f.ProcessID != "" {
		where = append(where, "process_id = ?")
		args = append(args, f.ProcessID)
	}
	query := "SELECT payload FROM events WHERE " + strings.Join(where, " AND ") + " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev event.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest journaled seq, 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM events").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// VerifyEvents recomputes every journal hash and returns the seqs whose
// stored hash does not match their payload.
func (s *Store) VerifyEvents(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, payload, hash FROM events ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	bad := []int64{}
	for rows.Next() {
		var (
			seq           int64
			payload, hash string
		)
		if err := rows.Scan(&seq, &payload, &hash); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if canon.HashBytes(canon.DomainEvent, []byte(payload)) != hash {
			bad = append(bad, seq)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return bad, nil
}
