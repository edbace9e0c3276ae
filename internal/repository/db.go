package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/oficios-api/internal/models"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside or outside a transaction.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Unique constraints the services care about.
const (
	ConstraintResponseRequest   = "responses_request_id_key"
	ConstraintResponseNumber    = "responses_number_key"
	ConstraintRequestTracking   = "requests_tracking_number_key"
	ConstraintResponseYearIndex = "responses_correlative_year_key"
)

const (
	uniqueViolationCode       = "23505"
	invalidTextRepresentation = "22P02"
)

// ErrUniqueViolation is matched by every unique constraint failure.
var ErrUniqueViolation = errors.New("unique constraint violation")

// UniqueViolationError names the constraint that rejected a write.
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %q violated", e.Constraint)
}

// Is lets callers match with errors.Is(err, ErrUniqueViolation).
func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err was raised by the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var uv *UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	return constraint == "" || uv.Constraint == constraint
}

// IsInvalidInput reports whether Postgres rejected a parameter it could not
// parse into the column type, such as a malformed uuid.
func IsInvalidInput(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == invalidTextRepresentation
}

// translate turns driver errors the services branch on into repository errors.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
		return &UniqueViolationError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}

// Transactor opens database transactions bounded by a timeout.
type Transactor struct {
	db      *sqlx.DB
	timeout time.Duration
}

const defaultTxTimeout = 5 * time.Second

// NewTransactor constructs a Transactor. A non-positive timeout uses the default.
func NewTransactor(db *sqlx.DB, timeout time.Duration) *Transactor {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &Transactor{db: db, timeout: timeout}
}

// DB exposes the pool for non-transactional reads.
func (t *Transactor) DB() *sqlx.DB {
	return t.db
}

// RunInTx executes fn inside one transaction. fn receives the context the
// transaction is bound to. Any error from fn, or a commit failure, rolls back
// every write fn performed.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	return models.NormalizePage(page, pageSize)
}
