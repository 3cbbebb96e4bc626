// Package tracking provides before-value snapshots for lifecycle-managed
// records. A snapshot captures only the fields a type's hooks actually
// watch, keeping memory overhead proportional to declared interest rather
// than record size.
package tracking

import (
	"reflect"
	"strings"
)

// FieldGetter is implemented by values that expose named fields for
// dotted-path traversal, such as related records.
type FieldGetter interface {
	Field(name string) (interface{}, bool)
}

// Resolve traverses a dot-separated field path from root and returns the
// terminal value. Traversal stops silently when an intermediate segment
// is nil or absent; the path resolves to nil rather than failing.
func Resolve(root interface{}, path string) interface{} {
	value := root
	for _, part := range strings.Split(path, ".") {
		if value == nil {
			return nil
		}
		switch v := value.(type) {
		case map[string]interface{}:
			value = v[part]
		case FieldGetter:
			next, ok := v.Field(part)
			if !ok {
				return nil
			}
			value = next
		default:
			// Terminal value with segments left over: treat as absent.
			return nil
		}
	}
	return value
}

// Equal compares two field values, handling nil on either side.
// Non-primitive values use value equality via reflect.DeepEqual.
func Equal(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Snapshot holds the before-values of watched field paths, captured at
// the last commit point: load from storage, or immediately after a
// successful persist. A record that has never been persisted has an
// empty snapshot.
type Snapshot struct {
	values map[string]interface{}
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{values: make(map[string]interface{})}
}

// Capture replaces the snapshot wholesale with the current values of the
// watched paths resolved from root.
func (s *Snapshot) Capture(root interface{}, watched []string) {
	values := make(map[string]interface{}, len(watched))
	for _, path := range watched {
		values[path] = Resolve(root, path)
	}
	s.values = values
}

// Clone returns an independent copy of the snapshot. The executor uses
// this to preserve before-values across an internal save delegation that
// would otherwise refresh them prematurely.
func (s *Snapshot) Clone() *Snapshot {
	values := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return &Snapshot{values: values}
}

// Has reports whether the path was captured.
func (s *Snapshot) Has(path string) bool {
	_, ok := s.values[path]
	return ok
}

// Value returns the captured before-value for the path, or nil if the
// path was never captured.
func (s *Snapshot) Value(path string) interface{} {
	return s.values[path]
}

// Len returns the number of captured paths.
func (s *Snapshot) Len() int {
	return len(s.values)
}
