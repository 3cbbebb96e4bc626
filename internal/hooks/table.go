package hooks

import (
	"fmt"
	"sort"
)

// TriggerTable is the immutable per-type index of hook descriptors. It is
// built once at type registration and shared read-only across every
// instance of the type.
type TriggerTable struct {
	triggers map[Trigger][]*Descriptor
	watched  []string
}

// BuildTable constructs a trigger table from a type's methods and hook
// declarations. Each trigger's descriptor list is sorted by priority
// descending, stable on declaration order. The watched field set is the
// union of every When path and every condition leaf path.
func BuildTable(methods map[string]*Method, decls []Descriptor) (*TriggerTable, error) {
	triggers := make(map[Trigger][]*Descriptor)
	watchedSet := make(map[string]struct{})

	for _, decl := range decls {
		m, ok := methods[decl.MethodName]
		if !ok {
			return nil, fmt.Errorf("hook on %s declares unknown method %q", decl.Trigger, decl.MethodName)
		}

		d := decl
		d.Async = m.Async
		if d.Was == nil {
			d.Was = Wildcard
		}
		if d.IsNow == nil {
			d.IsNow = Wildcard
		}
		triggers[d.Trigger] = append(triggers[d.Trigger], &d)

		if d.When != "" {
			watchedSet[d.When] = struct{}{}
		}
		for _, p := range d.Condition.Paths() {
			watchedSet[p] = struct{}{}
		}
	}

	for _, list := range triggers {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority > list[j].Priority
		})
	}

	watched := make([]string, 0, len(watchedSet))
	for p := range watchedSet {
		watched = append(watched, p)
	}
	sort.Strings(watched)

	return &TriggerTable{triggers: triggers, watched: watched}, nil
}

// Hooks returns the descriptors for a trigger in firing order. Unknown
// triggers yield an empty slice.
func (t *TriggerTable) Hooks(trigger Trigger) []*Descriptor {
	return t.triggers[trigger]
}

// WatchedFields returns the sorted set of field paths the type's hooks
// watch. The snapshot captures exactly these paths.
func (t *TriggerTable) WatchedFields() []string {
	return t.watched
}

// All returns a copy of the full trigger index for introspection.
func (t *TriggerTable) All() map[Trigger][]*Descriptor {
	result := make(map[Trigger][]*Descriptor, len(t.triggers))
	for trigger, list := range t.triggers {
		result[trigger] = append([]*Descriptor(nil), list...)
	}
	return result
}

// Len returns the total number of registered descriptors.
func (t *TriggerTable) Len() int {
	n := 0
	for _, list := range t.triggers {
		n += len(list)
	}
	return n
}
