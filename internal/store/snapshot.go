package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/triadic/internal/canon"
	"github.com/roach88/triadic/internal/kernel"
)

// WriteSnapshot stores every process in procs under tick in one
// transaction. Writing the same tick twice replaces its rows.
func (s *Store) WriteSnapshot(ctx context.Context, tick int64, procs []kernel.Process) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM process_snapshots WHERE tick = ?", tick); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	for _, p := range procs {
		payload, err := canon.Marshal(p)
		if err != nil {
			return fmt.Errorf("write snapshot: process %s: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO process_snapshots (tick, process_id, state, payload, hash)
			VALUES (?, ?, ?, ?, ?)
		`, tick, p.ID, string(p.State), string(payload), canon.HashBytes(canon.DomainProcess, payload))
		if err != nil {
			return fmt.Errorf("write snapshot: process %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the processes stored under tick, ordered by id.
func (s *Store) ReadSnapshot(ctx context.Context, tick int64) ([]kernel.Process, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM process_snapshots
		WHERE tick = ?
		ORDER BY process_id COLLATE BINARY ASC
	`, tick)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	procs := []kernel.Process{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var p kernel.Process
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return procs, nil
}

// LatestSnapshotTick returns the newest snapshot tick. ok is false when
// no snapshot exists.
func (s *Store) LatestSnapshotTick(ctx context.Context) (tick int64, ok bool, err error) {
	var t sql.NullInt64
	err = s.db.QueryRowContext(ctx, "SELECT MAX(tick) FROM process_snapshots").Scan(&t)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !t.Valid) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return t.Int64, true, nil
}
