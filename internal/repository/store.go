package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Store bundles the booking repositories behind one transaction boundary.
// Repository methods join the transaction found in their context.
type Store struct {
	db *sql.DB
	*LockRepo
	*BookingRepo
	*PaymentRepo
	*ShowtimeRepo
}

// NewStore builds a Store on db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		LockRepo:     NewLockRepo(db),
		BookingRepo:  NewBookingRepo(db),
		PaymentRepo:  NewPaymentRepo(db),
		ShowtimeRepo: NewShowtimeRepo(db),
	}
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction. A nested call joins the outer
// transaction. The transaction is rolled back unless fn returns nil and
// the commit succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
