package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-lang/lifecycle/internal/lifecycle"
)

// MemoryStore is an in-memory lifecycle.Store. It backs tests and small
// tools that exercise the hook pipeline without a database. Begin,
// Commit, and Rollback emulate a single transaction scope for on-commit
// deferral.
type MemoryStore struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]interface{}
	inTx     bool
	deferred []func()
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]map[string]map[string]interface{}),
	}
}

// IsNewRecord reports whether the entity has no primary key value yet.
func (s *MemoryStore) IsNewRecord(e *lifecycle.Entity) bool {
	pk := e.PrimaryKey()
	return pk == nil || pk == ""
}

// Save inserts or updates the entity's record. On insert a missing
// primary key value is generated.
func (s *MemoryStore) Save(ctx context.Context, e *lifecycle.Entity, fields []string) error {
	sch := e.Type().Schema()
	pk, err := sch.GetPrimaryKey()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	isNew := false
	if v, ok := e.Field(pk.Name); !ok || v == nil || v == "" {
		e.Set(pk.Name, uuid.New().String())
		isNew = true
	}
	id := fmt.Sprint(e.PrimaryKey())

	table := s.tables[sch.TableName]
	if table == nil {
		table = make(map[string]map[string]interface{})
		s.tables[sch.TableName] = table
	}

	existing, found := table[id]
	if isNew || !found {
		record := make(map[string]interface{}, len(sch.Fields))
		for name := range sch.Fields {
			if v, ok := e.Field(name); ok {
				record[name] = v
			}
		}
		table[id] = record
		return nil
	}

	for name := range sch.Fields {
		if len(fields) > 0 && name != pk.Name && !contains(fields, name) {
			continue
		}
		if v, ok := e.Field(name); ok {
			existing[name] = v
		}
	}
	return nil
}

// Delete removes the entity's record. Deleting an absent record is an
// error.
func (s *MemoryStore) Delete(ctx context.Context, e *lifecycle.Entity) error {
	sch := e.Type().Schema()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprint(e.PrimaryKey())
	table := s.tables[sch.TableName]
	if _, ok := table[id]; !ok {
		return fmt.Errorf("%s record %s not found", sch.Name, id)
	}
	delete(table, id)
	return nil
}

// DeferUntilCommit queues fn when a transaction scope is open and runs
// it immediately otherwise.
func (s *MemoryStore) DeferUntilCommit(ctx context.Context, fn func()) {
	s.mu.Lock()
	if s.inTx {
		s.deferred = append(s.deferred, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Begin opens a transaction scope.
func (s *MemoryStore) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = true
}

// Commit closes the transaction scope and runs deferred callbacks in
// order.
func (s *MemoryStore) Commit() {
	s.mu.Lock()
	deferred := s.deferred
	s.deferred = nil
	s.inTx = false
	s.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}
}

// Rollback closes the transaction scope, dropping deferred callbacks.
func (s *MemoryStore) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = nil
	s.inTx = false
}

// Get returns a copy of a stored record for inspection.
func (s *MemoryStore) Get(table, id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tables[table][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out, true
}

// Count returns the number of records in a table.
func (s *MemoryStore) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
