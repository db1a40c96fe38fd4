package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/aitteam/whm/internal/db"
)

// FailOnNthExecUoW is a test UoW that, once armed, injects an error on the
// Nth ExecContext call of every transaction. It lets tests make a backend
// write fail after the request has been accepted.
//
// ExecContext calls are counted starting at 1. QueryContext and QueryRowContext
// are not counted (reads pass through normally).
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	armed atomic.Bool
}

// Arm enables failure injection for subsequent transactions.
func (u *FailOnNthExecUoW) Arm()    { u.armed.Store(true) }
func (u *FailOnNthExecUoW) Disarm() { u.armed.Store(false) }

func (u *FailOnNthExecUoW) Reader() db.DBTX { return u.DB }

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	var handle db.DBTX = tx
	if u.armed.Load() {
		handle = &failOnNthExec{DBTX: tx, failOn: u.FailOn, err: u.Err}
	}
	if fnErr := fn(ctx, handle); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	if n == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
