package store

import (
	"context"
	"database/sql"
	"time"

	"referrals/internal/referral/service"
	dErrors "referrals/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs service callbacks inside database transactions.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresTxRunner constructs a transaction runner. A zero timeout uses
// the default; it only applies when the caller's context has no deadline.
func NewPostgresTxRunner(db *sql.DB, timeout time.Duration) *PostgresTx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &PostgresTx{db: db, timeout: timeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(store service.Store) error) error {
	return t.run(ctx, nil, fn)
}

// ReadSnapshot runs fn in a REPEATABLE READ, READ ONLY transaction so every
// query inside observes the same snapshot.
func (t *PostgresTx) ReadSnapshot(ctx context.Context, fn func(store service.Store) error) error {
	return t.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (t *PostgresTx) run(ctx context.Context, opts *sql.TxOptions, fn func(store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(NewPostgresTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}
