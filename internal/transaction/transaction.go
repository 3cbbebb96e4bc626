// Package transaction provides a small transaction manager with a
// post-commit callback queue. Hooks declared with commit deferral are
// scheduled here and run exactly once after a successful commit.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyFinished is returned when committing or rolling back a
	// transaction that has already finished.
	ErrAlreadyFinished = errors.New("transaction already finished")
)

// Transaction wraps a *sql.Tx with a deferred-callback queue.
type Transaction struct {
	db       *sql.DB
	tx       *sql.Tx
	mu       sync.Mutex
	deferred []func()
	finished bool
}

// Manager manages database transactions
type Manager struct {
	db *sql.DB
}

// NewManager creates a new transaction manager
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Begin starts a new transaction.
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{db: m.db, tx: tx}, nil
}

// WithTransaction runs fn inside a transaction placed in the context.
// The transaction commits when fn returns nil and rolls back otherwise;
// deferred callbacks run only after a successful commit.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txn, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(WithContext(ctx, txn)); err != nil {
		_ = txn.Rollback()
		return err
	}

	return txn.Commit()
}

// Tx returns the underlying *sql.Tx.
func (t *Transaction) Tx() *sql.Tx {
	return t.tx
}

// OnCommit schedules a zero-argument callback to run once, after the
// transaction successfully commits. Callbacks run in scheduling order
// and are dropped on rollback.
func (t *Transaction) OnCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deferred = append(t.deferred, fn)
}

// Commit commits the transaction and runs the deferred callbacks.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return ErrAlreadyFinished
	}
	t.finished = true
	deferred := t.deferred
	t.deferred = nil
	t.mu.Unlock()

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, fn := range deferred {
		fn()
	}
	return nil
}

// Rollback aborts the transaction, discarding deferred callbacks.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return ErrAlreadyFinished
	}
	t.finished = true
	t.deferred = nil
	t.mu.Unlock()

	return t.tx.Rollback()
}
