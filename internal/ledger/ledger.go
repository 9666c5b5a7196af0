package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"matchday-backend/internal/model"
)

// Store is the versioned occurrence record store. Implementations must give
// single-record linearizability for Create and Swap.
type Store interface {
	// GetOccurrence returns ErrNotFound when no record exists for key.
	GetOccurrence(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error)
	// CreateOccurrence inserts occ only if no record exists; otherwise ErrConflict.
	CreateOccurrence(ctx context.Context, occ *model.Occurrence) error
	// SwapOccurrence writes occ only if the stored version still equals
	// expected; otherwise ErrConflict. On success occ.Version is advanced.
	SwapOccurrence(ctx context.Context, occ *model.Occurrence, expected int64) error
}

// Mutation inspects and optionally modifies occ. It returns false to leave
// the record untouched. Errors are returned to the caller unchanged.
type Mutation func(occ *model.Occurrence) (write bool, err error)

// Ledger runs read-decide-write cycles against a Store.
type Ledger struct {
	store       Store
	maxAttempts int
}

// New creates a Ledger. maxAttempts <= 0 retries until the context ends.
func New(store Store, maxAttempts int) *Ledger {
	return &Ledger{store: store, maxAttempts: maxAttempts}
}

// Get reads one occurrence.
func (l *Ledger) Get(ctx context.Context, key model.OccurrenceKey) (*model.Occurrence, error) {
	occ, err := l.store.GetOccurrence(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return occ, nil
}

// Create inserts a new occurrence. An existing record yields ErrExists.
func (l *Ledger) Create(ctx context.Context, occ *model.Occurrence) error {
	if err := l.store.CreateOccurrence(ctx, occ); err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w: %s", ErrExists, occ.Key())
		}
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}

// Update applies fn to the current record of key and commits the result with
// a conditional write, re-reading and re-applying fn on every conflict.
// fn always sees a fresh copy; state from a lost attempt is discarded.
func (l *Ledger) Update(ctx context.Context, key model.OccurrenceKey, fn Mutation) (*model.Occurrence, error) {
	return l.UpdateOrCreate(ctx, key, nil, fn)
}

// UpdateOrCreate behaves like Update, but when the record is missing and seed
// is non-nil, fn runs against seed() and the result is inserted instead.
// Losing the insert race counts as a conflict.
func (l *Ledger) UpdateOrCreate(ctx context.Context, key model.OccurrenceKey, seed func() *model.Occurrence, fn Mutation) (*model.Occurrence, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransactionFailed, key, attempt-1, err)
		}
		if l.maxAttempts > 0 && attempt > l.maxAttempts {
			return nil, fmt.Errorf("%w: %s: retry budget of %d attempts exhausted", ErrTransactionFailed, key, l.maxAttempts)
		}

		current, err := l.store.GetOccurrence(ctx, key)
		creating := false
		switch {
		case errors.Is(err, ErrNotFound) && seed != nil:
			current = seed()
			creating = true
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("%w: read %s: %w", ErrTransactionFailed, key, err)
		case err != nil:
			return nil, err
		}

		next := current.Clone()
		write, err := fn(next)
		if creating && (err != nil || !write) {
			if err == nil {
				err = ErrNotFound
			}
			return nil, err
		}
		if err != nil {
			return current, err
		}
		if !write {
			return current, nil
		}

		if creating {
			err = l.store.CreateOccurrence(ctx, next)
		} else {
			err = l.store.SwapOccurrence(ctx, next, current.Version)
		}
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: write %s: %w", ErrTransactionFailed, key, err)
		}
		if attempt%50 == 0 {
			logger.Warningf("ledger: %s still contended after %d attempts", key, attempt)
		}
	}
}

// Retry runs fn until it returns anything other than ErrConflict, bounded by
// the context and the ledger's attempt budget. It is used for aggregates that
// live outside the occurrence record.
func (l *Ledger) Retry(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s after %d attempts: %w", ErrTransactionFailed, what, attempt-1, err)
		}
		if l.maxAttempts > 0 && attempt > l.maxAttempts {
			return fmt.Errorf("%w: %s: retry budget of %d attempts exhausted", ErrTransactionFailed, what, l.maxAttempts)
		}
		err := fn(ctx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
}
