package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type txKey struct{}

// InTransaction reports whether ctx was handed out by InTx.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// Tx is the handle passed to InTx callbacks. All writes of one logical
// request go through the same Tx.
type Tx struct {
	tx pgx.Tx
}

// TxFunc is the unit of work run by InTx. It may be invoked more than once
// when the transaction conflicts, so it must not have effects outside tx.
type TxFunc func(ctx context.Context, tx *Tx) error

// InTx runs fn in a single READ COMMITTED transaction. It commits when fn
// returns nil and rolls back otherwise; the transaction is always released.
// Conflicts (serialization failure, deadlock, default-resume exclusion) are
// retried with a fresh transaction up to the configured number of attempts.
// Calling InTx with a context obtained from another InTx returns
// ErrNestedTransaction.
func (db *DB) InTx(ctx context.Context, fn TxFunc) error {
	if InTransaction(ctx) {
		return ErrNestedTransaction
	}

	var err error
	for attempt := 1; attempt <= db.txMaxAttempts; attempt++ {
		err = db.runTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		db.log.Warn("transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", db.txMaxAttempts),
			zap.Error(err))
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op returning ErrTxClosed.
		rbCtx := context.WithoutCancel(ctx)
		if p := recover(); p != nil {
			_ = tx.Rollback(rbCtx)
			panic(p)
		}
		if rErr := tx.Rollback(rbCtx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			// Log rollback error but don't overwrite main error
			db.log.Error("rollback failed", zap.Error(rErr))
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true), &Tx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		// The server answered, so the transaction is known to be rolled back.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) || errors.Is(err, pgx.ErrTxCommitRollback) {
			return unavailable("commit transaction", err)
		}
		return fmt.Errorf("%w: %w", ErrCommitUnknown, unavailable("commit transaction", err))
	}
	return nil
}

func (t *Tx) execOne(ctx context.Context, what string, sql string, args ...any) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
