package lifecycle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/lifecycle/internal/hooks"
	"github.com/conduit-lang/lifecycle/internal/schema"
)

// TypeRegistry holds every registered record type. Registration happens
// once at program start; the registry is thereafter read-mostly and safe
// for concurrent use.
type TypeRegistry struct {
	mu      sync.RWMutex
	types   map[string]*Type
	schemas *schema.Registry
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make(map[string]*Type),
		schemas: schema.NewRegistry(),
	}
}

// Register builds the definition and registers the resulting type.
// Registering the same type name twice is an error.
func (r *TypeRegistry) Register(def *Definition) (*Type, error) {
	t, err := def.Build()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name()]; exists {
		return nil, fmt.Errorf("type %s is already registered", t.Name())
	}
	if err := r.schemas.Register(t.Schema()); err != nil {
		return nil, err
	}
	r.types[t.Name()] = t
	return t, nil
}

// Get retrieves a registered type by name.
func (r *TypeRegistry) Get(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Types returns all registered types sorted by name.
func (r *TypeRegistry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name() < types[j].Name() })
	return types
}

// ListHooks returns the full descriptor index for a type, for
// introspection and reporting.
func (r *TypeRegistry) ListHooks(name string) (map[hooks.Trigger][]*hooks.Descriptor, bool) {
	t, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return t.Table().All(), true
}

// Check runs static hook-path validation over every registered type.
func (r *TypeRegistry) Check() []schema.Diagnostic {
	var diags []schema.Diagnostic
	for _, t := range r.Types() {
		diags = append(diags, schema.CheckHooks(r.schemas, t.Schema(), t.Table())...)
	}
	return diags
}

// Schemas exposes the schema registry backing this type registry.
func (r *TypeRegistry) Schemas() *schema.Registry {
	return r.schemas
}

// DefaultRegistry is the process-wide type registry used by the CLI.
var DefaultRegistry = NewTypeRegistry()

// Register registers a definition in the default registry.
func Register(def *Definition) (*Type, error) {
	return DefaultRegistry.Register(def)
}
