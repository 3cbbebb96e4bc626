package lifecycle

import (
	"github.com/conduit-lang/lifecycle/internal/tracking"
)

// Entity is one record instance of a registered type. Its snapshot and
// suppression flag are instance-private; callers are expected to
// serialize mutation calls per instance.
type Entity struct {
	typ        *Type
	data       map[string]interface{}
	snapshot   *tracking.Snapshot
	suppressed bool
}

// New creates a fresh, not-yet-persisted instance. Its snapshot starts
// empty: there is no before-state to compare against.
func (t *Type) New(data map[string]interface{}) *Entity {
	return &Entity{
		typ:      t,
		data:     copyRecord(data),
		snapshot: tracking.NewSnapshot(),
	}
}

// Load creates an instance representing an already-persisted record and
// captures the initial snapshot of its watched fields.
func (t *Type) Load(data map[string]interface{}) *Entity {
	e := &Entity{
		typ:      t,
		data:     copyRecord(data),
		snapshot: tracking.NewSnapshot(),
	}
	e.takeSnapshot()
	return e
}

func copyRecord(data map[string]interface{}) map[string]interface{} {
	record := make(map[string]interface{}, len(data))
	for k, v := range data {
		record[k] = v
	}
	return record
}

// Type returns the entity's registered type.
func (e *Entity) Type() *Type {
	return e.typ
}

// Get resolves a dotted field path against the entity's current state.
func (e *Entity) Get(path string) interface{} {
	return tracking.Resolve(e, path)
}

// Set assigns a field value.
func (e *Entity) Set(field string, value interface{}) {
	e.data[field] = value
}

// Field implements tracking.FieldGetter for dotted-path traversal.
func (e *Entity) Field(name string) (interface{}, bool) {
	v, ok := e.data[name]
	return v, ok
}

// Data returns a shallow copy of the entity's current field values.
func (e *Entity) Data() map[string]interface{} {
	return copyRecord(e.data)
}

// PrimaryKey returns the entity's primary key value, or nil when the
// schema has no primary key or the value is unset.
func (e *Entity) PrimaryKey() interface{} {
	pk, err := e.typ.Schema().GetPrimaryKey()
	if err != nil {
		return nil
	}
	return e.data[pk.Name]
}

// HasChanged reports whether the path's current value differs from its
// snapshotted value. Paths never captured are treated as unchanged: a
// fresh instance has nothing to compare against.
func (e *Entity) HasChanged(path string) bool {
	return e.view().HasChanged(path)
}

// InitialValue returns the snapshotted before-value for the path, or nil
// if the path was never captured.
func (e *Entity) InitialValue(path string) interface{} {
	return e.snapshot.Value(path)
}

// CurrentValue re-resolves the live value of the path.
func (e *Entity) CurrentValue(path string) interface{} {
	return e.Get(path)
}

// SuppressHooks turns hook execution off for this instance and returns a
// function restoring the previous state. Scopes nest: each restore puts
// back exactly what its acquisition observed.
func (e *Entity) SuppressHooks() (restore func()) {
	prev := e.suppressed
	e.suppressed = true
	return func() { e.suppressed = prev }
}

// HooksSuppressed reports whether hook execution is currently suppressed.
func (e *Entity) HooksSuppressed() bool {
	return e.suppressed
}

// takeSnapshot replaces the snapshot wholesale with the current values
// of the type's watched fields.
func (e *Entity) takeSnapshot() {
	e.snapshot.Capture(e, e.typ.Table().WatchedFields())
}

// view builds the evaluation view over a specific snapshot. The async
// save path passes a preserved snapshot so AFTER_* triggers see the
// pre-persist before-values.
func (e *Entity) view() instanceView {
	return instanceView{entity: e, snap: e.snapshot}
}

// instanceView is the hooks.Instance implementation evaluated by
// conditions and handed to hook bodies.
type instanceView struct {
	entity *Entity
	snap   *tracking.Snapshot
}

func (v instanceView) HasChanged(path string) bool {
	if !v.snap.Has(path) {
		return false
	}
	return !tracking.Equal(v.entity.Get(path), v.snap.Value(path))
}

func (v instanceView) InitialValue(path string) interface{} {
	return v.snap.Value(path)
}

func (v instanceView) CurrentValue(path string) interface{} {
	return v.entity.Get(path)
}

func (v instanceView) Set(field string, value interface{}) {
	v.entity.Set(field, value)
}
