// Package store provides persistence backends implementing the
// lifecycle.Store contract: a database/sql store and an in-memory store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/lifecycle/internal/lifecycle"
	"github.com/conduit-lang/lifecycle/internal/schema"
	"github.com/conduit-lang/lifecycle/internal/transaction"
)

// Dialect selects the SQL placeholder style.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore persists entities through database/sql. Writes join the
// transaction found in the context, if any, and on-commit deferrals are
// routed to that transaction's callback queue.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	manager *transaction.Manager
	logger  *zap.Logger
}

// NewSQLStore creates a store on top of an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		manager: transaction.NewManager(db),
		logger:  logger,
	}
}

// Manager returns the transaction manager bound to this store's handle.
func (s *SQLStore) Manager() *transaction.Manager {
	return s.manager
}

// IsNewRecord reports whether the entity has no primary key value yet.
func (s *SQLStore) IsNewRecord(e *lifecycle.Entity) bool {
	pk := e.PrimaryKey()
	return pk == nil || pk == ""
}

// Save inserts new entities and updates existing ones. For updates, a
// non-empty fields slice restricts the SET list to that allow-list.
func (s *SQLStore) Save(ctx context.Context, e *lifecycle.Entity, fields []string) error {
	if s.IsNewRecord(e) {
		return s.insert(ctx, e)
	}
	return s.update(ctx, e, fields)
}

func (s *SQLStore) insert(ctx context.Context, e *lifecycle.Entity) error {
	sch := e.Type().Schema()
	pk, err := sch.GetPrimaryKey()
	if err != nil {
		return err
	}

	if v, ok := e.Field(pk.Name); !ok || v == nil || v == "" {
		e.Set(pk.Name, uuid.New().String())
	}

	var columns []string
	var values []interface{}
	for _, name := range sortedFieldNames(sch) {
		if v, ok := e.Field(name); ok {
			columns = append(columns, name)
			values = append(values, v)
		}
	}
	if len(columns) == 0 {
		return fmt.Errorf("no fields to insert for %s", sch.Name)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = s.dialect.placeholder(i + 1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sch.TableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.execer(ctx).ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert %s record: %w", sch.Name, err)
	}

	s.logger.Debug("record inserted",
		zap.String("table", sch.TableName),
		zap.Any("id", e.PrimaryKey()))
	return nil
}

func (s *SQLStore) update(ctx context.Context, e *lifecycle.Entity, fields []string) error {
	sch := e.Type().Schema()
	pk, err := sch.GetPrimaryKey()
	if err != nil {
		return err
	}

	allowed := func(name string) bool {
		if len(fields) == 0 {
			return true
		}
		for _, f := range fields {
			if f == name {
				return true
			}
		}
		return false
	}

	var assignments []string
	var values []interface{}
	n := 1
	for _, name := range sortedFieldNames(sch) {
		if name == pk.Name || !allowed(name) {
			continue
		}
		v, ok := e.Field(name)
		if !ok {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = %s", name, s.dialect.placeholder(n)))
		values = append(values, v)
		n++
	}
	if len(assignments) == 0 {
		return fmt.Errorf("no fields to update for %s", sch.Name)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = %s",
		sch.TableName,
		strings.Join(assignments, ", "),
		pk.Name,
		s.dialect.placeholder(n),
	)
	values = append(values, e.PrimaryKey())

	result, err := s.execer(ctx).ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", sch.Name, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%s record %v not found", sch.Name, e.PrimaryKey())
	}

	return nil
}

// Delete removes the entity by primary key.
func (s *SQLStore) Delete(ctx context.Context, e *lifecycle.Entity) error {
	sch := e.Type().Schema()
	pk, err := sch.GetPrimaryKey()
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = %s",
		sch.TableName,
		pk.Name,
		s.dialect.placeholder(1),
	)

	if _, err := s.execer(ctx).ExecContext(ctx, query, e.PrimaryKey()); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", sch.Name, err)
	}
	return nil
}

// DeferUntilCommit queues fn on the active transaction, or runs it
// immediately when no transaction is in the context.
func (s *SQLStore) DeferUntilCommit(ctx context.Context, fn func()) {
	if txn, ok := transaction.FromContext(ctx); ok {
		txn.OnCommit(fn)
		return
	}
	fn()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLStore) execer(ctx context.Context) execer {
	if txn, ok := transaction.FromContext(ctx); ok {
		return txn.Tx()
	}
	return s.db
}

func sortedFieldNames(sch *schema.ResourceSchema) []string {
	names := make([]string, 0, len(sch.Fields))
	for name := range sch.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
