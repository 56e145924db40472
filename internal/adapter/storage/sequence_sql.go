package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/port"
)

const maxSequenceAttempts = 5

var errSequenceRace = errors.New("sequence row created concurrently")

// SequenceStore is the SQL per-day order counter.
type SequenceStore struct {
	*SQLStore
}

func NewSequenceStore(s *SQLStore) *SequenceStore {
	return &SequenceStore{SQLStore: s}
}

var _ port.SequenceRepository = (*SequenceStore)(nil)

// Next increments the day's row inside a transaction, creating it on first
// use. Two writers creating the same row race on the primary key; the loser
// retries.
func (s *SequenceStore) Next(ctx context.Context, day string) (int64, error) {
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		seq, err := s.next(ctx, day)
		if errors.Is(err, errSequenceRace) || isDeadlock(err) {
			continue
		}
		return seq, err
	}
	return 0, fmt.Errorf("next sequence for %s: %w", day, errSequenceRace)
}

func (s *SequenceStore) next(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, s.q(`UPDATE order_sequences SET seq = seq + 1 WHERE day = ?`), day)
		if err != nil {
			return fmt.Errorf("increment sequence: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("increment sequence: %w", err)
		}
		if rows == 0 {
			if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO order_sequences (day, seq) VALUES (?, 1)`), day); err != nil {
				if isUniqueViolation(err) {
					return errSequenceRace
				}
				return fmt.Errorf("create sequence: %w", err)
			}
		}
		if err := tx.QueryRowContext(ctx, s.q(`SELECT seq FROM order_sequences WHERE day = ?`), day).Scan(&seq); err != nil {
			return fmt.Errorf("read sequence: %w", err)
		}
		return nil
	})
	return seq, err
}

// Resync raises the day's counter to floor, creating the row when missing.
func (s *SequenceStore) Resync(ctx context.Context, day string, floor int64) error {
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		err := s.resync(ctx, day, floor)
		if errors.Is(err, errSequenceRace) || isDeadlock(err) {
			continue
		}
		return err
	}
	return fmt.Errorf("resync sequence for %s: %w", day, errSequenceRace)
}

func (s *SequenceStore) resync(ctx context.Context, day string, floor int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM order_sequences WHERE day = ?`), day).Scan(&exists); err != nil {
			return fmt.Errorf("read sequence: %w", err)
		}
		if exists == 0 {
			if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO order_sequences (day, seq) VALUES (?, ?)`), day, floor); err != nil {
				if isUniqueViolation(err) {
					return errSequenceRace
				}
				return fmt.Errorf("create sequence: %w", err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE order_sequences SET seq = ? WHERE day = ? AND seq < ?`), floor, day, floor); err != nil {
			return fmt.Errorf("resync sequence: %w", err)
		}
		return nil
	})
}
