// Package lifecycle ties hook declarations to the mutation lifecycle of
// record instances: registration builds an immutable trigger table per
// type, and the executor fires qualifying hooks around persistence.
package lifecycle

import (
	"fmt"

	"github.com/conduit-lang/lifecycle/internal/hooks"
	"github.com/conduit-lang/lifecycle/internal/schema"
)

// Definition collects a type's schema, hook methods, and hook
// declarations before registration. One method may carry several
// declarations; each produces an independent descriptor.
type Definition struct {
	schema  *schema.ResourceSchema
	methods map[string]*hooks.Method
	decls   []hooks.Descriptor
}

// NewDefinition starts a definition for the given schema.
func NewDefinition(sch *schema.ResourceSchema) *Definition {
	return &Definition{
		schema:  sch,
		methods: make(map[string]*hooks.Method),
	}
}

// Method binds a synchronous hook body under the given name.
func (d *Definition) Method(name string, fn hooks.HookFunc) *Definition {
	d.methods[name] = &hooks.Method{Name: name, Fn: fn}
	return d
}

// AsyncMethod binds an asynchronous hook body. Asynchronous methods are
// never invoked by synchronous saves.
func (d *Definition) AsyncMethod(name string, fn hooks.HookFunc) *Definition {
	d.methods[name] = &hooks.Method{Name: name, Fn: fn, Async: true}
	return d
}

// On declares a hook on a previously bound method.
func (d *Definition) On(method string, trigger hooks.Trigger, opts ...hooks.Option) *Definition {
	d.decls = append(d.decls, hooks.On(method, trigger, opts...))
	return d
}

// Build constructs the immutable Type from the definition.
func (d *Definition) Build() (*Type, error) {
	table, err := hooks.BuildTable(d.methods, d.decls)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", d.schema.Name, err)
	}
	return &Type{
		schema:  d.schema,
		table:   table,
		methods: d.methods,
	}, nil
}

// Type is the immutable, registered form of a record type. It is built
// once and shared read-only across all instances.
type Type struct {
	schema  *schema.ResourceSchema
	table   *hooks.TriggerTable
	methods map[string]*hooks.Method
}

// Name returns the type's resource name.
func (t *Type) Name() string {
	return t.schema.Name
}

// Schema returns the type's resource schema.
func (t *Type) Schema() *schema.ResourceSchema {
	return t.schema
}

// Table returns the type's trigger table.
func (t *Type) Table() *hooks.TriggerTable {
	return t.table
}

// Method looks up a bound hook method by name.
func (t *Type) Method(name string) (*hooks.Method, bool) {
	m, ok := t.methods[name]
	return m, ok
}
