package service

import (
	"context"
	"fmt"

	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// SequenceAllocator hands out the correlative that numbers a response.
type SequenceAllocator struct {
	prefix string
}

// NewSequenceAllocator builds numbers as "{prefix}-{correlative}-{year}".
func NewSequenceAllocator(prefix string) *SequenceAllocator {
	if prefix == "" {
		prefix = "RE"
	}
	return &SequenceAllocator{prefix: prefix}
}

// Next allocates the next correlative of year on the caller's transaction.
// The value is only consumed if that transaction commits.
func (a *SequenceAllocator) Next(ctx context.Context, store SequenceStore, year int) (int, error) {
	if year < 1 || year > 9999 {
		return 0, appErrors.WithField("year", "must be a four digit calendar year")
	}
	value, err := store.Next(ctx, year)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to allocate correlative")
	}
	if value < 1 {
		return 0, appErrors.Persistence(fmt.Errorf("sequence for %d returned %d", year, value), "failed to allocate correlative")
	}
	return value, nil
}

// Number formats the public response number.
func (a *SequenceAllocator) Number(correlative, year int) string {
	return fmt.Sprintf("%s-%d-%d", a.prefix, correlative, year)
}
