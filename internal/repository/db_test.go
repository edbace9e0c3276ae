package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestTransactorCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx := NewTransactor(db, 0)
	err := tx.RunInTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE requests SET status = 'pending'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTransactor(db, 0).RunInTx(context.Background(), func(context.Context, *sqlx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorTranslatesDeferredUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "23505", Constraint: ConstraintResponseRequest})

	err := NewTransactor(db, 0).RunInTx(context.Background(), func(context.Context, *sqlx.Tx) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.True(t, IsUniqueViolation(err, ConstraintResponseRequest))
	assert.False(t, IsUniqueViolation(err, ConstraintResponseNumber))
}

func TestTransactorRejectsCancelledContext(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewTransactor(db, 0).RunInTx(ctx, func(context.Context, *sqlx.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorHandsBoundContextToFn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	var deadline time.Time
	var hasDeadline bool
	err := NewTransactor(db, 2*time.Second).RunInTx(context.Background(), func(ctx context.Context, _ *sqlx.Tx) error {
		deadline, hasDeadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(&pq.Error{Code: "22P02"}))
	assert.True(t, IsInvalidInput(fmt.Errorf("load request: %w", &pq.Error{Code: "22P02"})))
	assert.False(t, IsInvalidInput(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidInput(errors.New("boom")))
	assert.False(t, IsInvalidInput(nil))
}

func TestNormalizePage(t *testing.T) {
	page, size := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 15, size)

	page, size = normalizePage(3, 50)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	_, size = normalizePage(1, 1000)
	assert.Equal(t, 15, size)
}
