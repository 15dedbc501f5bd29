package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed   bool
	rolledBack  bool
	rollbackErr error
	commitErr   error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return f.rollbackErr
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	tx := &fakeTx{}
	got, err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	boom := errors.New("boom")
	_, err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestWithTxJoinsRollbackError(t *testing.T) {
	rbErr := errors.New("connection reset")
	tx := &fakeTx{rollbackErr: rbErr}
	boom := errors.New("boom")
	_, err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) (struct{}, error) {
		return struct{}{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, rbErr)
}

func TestWithTxIgnoresClosedTx(t *testing.T) {
	tx := &fakeTx{rollbackErr: pgx.ErrTxClosed}
	boom := errors.New("boom")
	_, err := WithTx(context.Background(), &fakeBeginner{tx: tx}, func(pgx.Tx) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, pgx.ErrTxClosed)
}

func TestWithTxBeginError(t *testing.T) {
	beginErr := errors.New("pool exhausted")
	_, err := WithTx(context.Background(), &fakeBeginner{err: beginErr}, func(pgx.Tx) (int, error) {
		t.Fatal("fn must not run")
		return 0, nil
	})
	require.ErrorIs(t, err, beginErr)
}
