// Package repository implements MySQL persistence for the booking
// domain.  Repositories never own transactions: a transaction is
// started with TxRunner.WithTx and carried in the context, and every
// method picks it up transparently, so the same method works inside
// and outside a transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// DBTX is the subset of *sql.DB / *sql.Tx the repositories need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// TxRunner starts transactions and threads them through the context.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner bound to the given pool.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// WithTx runs fn inside a transaction.  Nested calls join the
// transaction already in the context instead of opening a second
// one.  The transaction commits when fn returns nil and rolls back
// otherwise.
func (r *TxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// q returns the ambient transaction when one is present, the pool
// otherwise.
func q(ctx context.Context, db *sql.DB) DBTX {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// isDuplicateEntry reports MySQL error 1062 (unique key violation).
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
