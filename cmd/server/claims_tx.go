package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/platform/tx"
)

const defaultClaimsTxTimeout = 5 * time.Second

// claimsPostgresTx runs claim mutations inside one database transaction. The
// per-claim key is unused here: row locks taken by the stores' Execute
// queries serialize concurrent mutations of the same claim.
type claimsPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newClaimsPostgresTx(db *sql.DB) *claimsPostgresTx {
	return &claimsPostgresTx{db: db}
}

func (t *claimsPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultClaimsTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return err
	}
	return nil
}
