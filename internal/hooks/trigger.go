// Package hooks defines lifecycle hook descriptors, the per-type trigger
// table, and the condition engine that gates hook execution.
package hooks

import "fmt"

// Trigger represents a lifecycle moment at which hooks may fire.
type Trigger int

const (
	BeforeSave Trigger = iota
	AfterSave
	BeforeCreate
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
)

// Triggers lists every trigger in pipeline order. Useful for iteration
// when rendering or validating a full trigger table.
var Triggers = []Trigger{
	BeforeSave,
	BeforeCreate,
	BeforeUpdate,
	AfterCreate,
	AfterUpdate,
	AfterSave,
	BeforeDelete,
	AfterDelete,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	switch t {
	case BeforeSave:
		return "before_save"
	case AfterSave:
		return "after_save"
	case BeforeCreate:
		return "before_create"
	case AfterCreate:
		return "after_create"
	case BeforeUpdate:
		return "before_update"
	case AfterUpdate:
		return "after_update"
	case BeforeDelete:
		return "before_delete"
	case AfterDelete:
		return "after_delete"
	default:
		return "unknown"
	}
}

// ParseTrigger converts a string to a Trigger
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "before_save":
		return BeforeSave, nil
	case "after_save":
		return AfterSave, nil
	case "before_create":
		return BeforeCreate, nil
	case "after_create":
		return AfterCreate, nil
	case "before_update":
		return BeforeUpdate, nil
	case "after_update":
		return AfterUpdate, nil
	case "before_delete":
		return BeforeDelete, nil
	case "after_delete":
		return AfterDelete, nil
	default:
		return 0, fmt.Errorf("unknown trigger: %s", s)
	}
}
