package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Failure classes surfaced to the API layer. Handlers match these with
// errors.Is to pick a status code; the wrapped text carries the detail.
var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInsufficientQuantity = errors.New("insufficient quantity available")
	ErrNotAvailable         = errors.New("product is not available")
	ErrAlreadyCancelled     = errors.New("order is cancelled")
	ErrHasOpenOrders        = errors.New("product has open orders")
	ErrConflict             = errors.New("write conflict, try again")
)

// txRetries bounds how many times a conflicting transaction is retried
// before surfacing ErrConflict.
const txRetries = 3

// inTx runs fn inside a transaction, retrying the whole transaction when
// SQLite reports a write conflict. Rollback on every non-commit exit path.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txRetries; attempt++ {
		err := runTx(ctx, db, fn)
		if err == nil || !isBusy(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isBusy reports whether err is a SQLite busy/locked condition that a
// fresh transaction may resolve.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
