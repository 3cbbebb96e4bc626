package schema

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/lifecycle/internal/hooks"
)

// Diagnostic codes for hook path validation.
const (
	CodeBadWatchedPath   = "lifecycle.E001"
	CodeBadConditionPath = "lifecycle.E002"
)

// Diagnostic reports a hook declaration whose field path does not
// resolve against the type's schema. Diagnostics are advisory: the hook
// stays registered and runtime execution is never blocked.
type Diagnostic struct {
	ID       string
	Resource string
	Method   string
	Path     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.ID, d.Message)
}

// CheckHooks walks every descriptor in the trigger table and verifies
// each watched path and condition leaf path against the schema,
// following relations through the registry. One diagnostic is emitted
// per invalid path.
func CheckHooks(reg *Registry, sch *ResourceSchema, table *hooks.TriggerTable) []Diagnostic {
	var diags []Diagnostic

	for _, trigger := range hooks.Triggers {
		for _, d := range table.Hooks(trigger) {
			if d.When != "" && !fieldExists(reg, sch, d.When) {
				diags = append(diags, Diagnostic{
					ID:       CodeBadWatchedPath,
					Resource: sch.Name,
					Method:   d.MethodName,
					Path:     d.When,
					Message: fmt.Sprintf("hook %q watches non-existent field %q on %s",
						d.MethodName, d.When, sch.Name),
				})
			}
			for _, path := range d.Condition.Paths() {
				if !fieldExists(reg, sch, path) {
					diags = append(diags, Diagnostic{
						ID:       CodeBadConditionPath,
						Resource: sch.Name,
						Method:   d.MethodName,
						Path:     path,
						Message: fmt.Sprintf("hook %q condition references non-existent field %q on %s",
							d.MethodName, path, sch.Name),
					})
				}
			}
		}
	}

	return diags
}

// fieldExists checks a dotted field path against the schema. Each
// non-terminal segment must name a relationship whose target schema is
// traversed next; the terminal segment must name a field or a
// relationship. A relation target the registry does not know cannot be
// validated further and is accepted.
func fieldExists(reg *Registry, sch *ResourceSchema, path string) bool {
	parts := strings.Split(path, ".")
	current := sch

	for i, part := range parts {
		last := i == len(parts)-1

		if current.HasField(part) {
			return last
		}

		rel, ok := current.Relationships[part]
		if !ok {
			return false
		}
		if last {
			return true
		}

		next, known := reg.Get(rel.TargetResource)
		if !known {
			return true
		}
		current = next
	}

	return false
}
