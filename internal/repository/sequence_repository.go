package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SequenceRepository persists per-year correlative counters.
type SequenceRepository struct {
	db Queryer
}

// NewSequenceRepository constructs the repository on a pool or a transaction.
func NewSequenceRepository(db Queryer) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments the counter for year and returns the new value. A missing
// row starts at zero, so the first call of a year returns 1. The upsert keeps
// the row locked until the surrounding transaction ends, which serializes
// concurrent allocators for the same year.
func (r *SequenceRepository) Next(ctx context.Context, year int) (int, error) {
	const query = `INSERT INTO correlative_sequences (year, value, updated_at)
VALUES ($1, 1, $2)
ON CONFLICT (year)
DO UPDATE SET value = correlative_sequences.value + 1, updated_at = EXCLUDED.updated_at
RETURNING value`
	var value int
	if err := r.db.GetContext(ctx, &value, query, year, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("allocate correlative for %d: %w", year, err)
	}
	return value, nil
}

// Current returns the last value handed out for year, or zero.
func (r *SequenceRepository) Current(ctx context.Context, year int) (int, error) {
	const query = `SELECT value FROM correlative_sequences WHERE year = $1`
	var value int
	if err := r.db.GetContext(ctx, &value, query, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read correlative for %d: %w", year, err)
	}
	return value, nil
}
