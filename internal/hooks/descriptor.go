package hooks

import "context"

// Wildcard is the sentinel value meaning "unconstrained" for the Was and
// IsNow shorthand filters.
const Wildcard = "*"

// HookFunc is the body of a hook method. The instance argument lets a
// hook re-query change state mid-execution.
type HookFunc func(ctx context.Context, inst Instance) error

// Method binds a named hook body to a record type. Async methods are
// skipped by synchronous execution and only run through the asynchronous
// save path.
type Method struct {
	Name  string
	Fn    HookFunc
	Async bool
}

// Descriptor is the immutable record of one hook declaration: which
// method to call, at which trigger, and under which filters. A single
// method may own several descriptors; each is evaluated independently.
type Descriptor struct {
	MethodName string
	Trigger    Trigger

	// When names a watched field path. The shorthand filters below only
	// apply when When is set.
	When        string
	Was         interface{} // before-value must equal this unless Wildcard
	IsNow       interface{} // current value must equal this unless Wildcard
	WhenChanged bool        // require the watched value to have changed

	// Condition is an optional advanced filter, independent of the
	// shorthand filters. Both must pass when both are present.
	Condition Condition

	Priority int
	OnCommit bool
	Async    bool
}

// Option configures a hook declaration.
type Option func(*Descriptor)

// On declares a hook: the named method fires at the given trigger,
// filtered by the supplied options.
func On(method string, trigger Trigger, opts ...Option) Descriptor {
	d := Descriptor{
		MethodName: method,
		Trigger:    trigger,
		Was:        Wildcard,
		IsNow:      Wildcard,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// When restricts the hook to a watched field path.
func When(path string) Option {
	return func(d *Descriptor) { d.When = path }
}

// Was requires the watched field's before-value to equal v.
func Was(v interface{}) Option {
	return func(d *Descriptor) { d.Was = v }
}

// IsNow requires the watched field's current value to equal v.
func IsNow(v interface{}) Option {
	return func(d *Descriptor) { d.IsNow = v }
}

// WhenChanged requires the watched field's value to have changed.
func WhenChanged() Option {
	return func(d *Descriptor) { d.WhenChanged = true }
}

// If attaches an advanced condition tree to the hook.
func If(cond Condition) Option {
	return func(d *Descriptor) { d.Condition = cond }
}

// WithPriority sets the hook's priority. Higher priorities fire first;
// equal priorities keep declaration order.
func WithPriority(p int) Option {
	return func(d *Descriptor) { d.Priority = p }
}

// OnCommit defers the hook to the persistence layer's post-commit queue.
func OnCommit() Option {
	return func(d *Descriptor) { d.OnCommit = true }
}
