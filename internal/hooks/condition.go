package hooks

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/lifecycle/internal/tracking"
)

// Instance is the view of an entity handed to conditions and hook
// bodies. HasChanged and InitialValue consult the before-value snapshot;
// CurrentValue re-resolves the live field path; Set assigns a field so
// hook bodies can mutate the record they run against.
type Instance interface {
	HasChanged(path string) bool
	InitialValue(path string) interface{}
	CurrentValue(path string) interface{}
	Set(field string, value interface{})
}

// Condition is an immutable boolean expression over an entity's current
// and snapshotted field values. The zero value means "no condition".
//
// Conditions are plain values: combinators build new trees without
// mutating their operands, and trees built from the same leaves compare
// equal with ==.
type Condition struct {
	node conditionNode
}

type conditionNode interface {
	check(inst Instance) bool
	collectPaths(out map[string]struct{})
	String() string
}

// IsZero reports whether the condition is unset.
func (c Condition) IsZero() bool {
	return c.node == nil
}

// Check evaluates the condition against the instance. An unset condition
// is vacuously true.
func (c Condition) Check(inst Instance) bool {
	if c.node == nil {
		return true
	}
	return c.node.check(inst)
}

// And combines two conditions with logical AND.
func (c Condition) And(other Condition) Condition {
	return Condition{node: andNode{left: c.node, right: other.node}}
}

// Or combines two conditions with logical OR.
func (c Condition) Or(other Condition) Condition {
	return Condition{node: orNode{left: c.node, right: other.node}}
}

// Not negates the condition. Negating a negation returns the inner
// condition unchanged, so c.Not().Not() == c holds structurally.
func (c Condition) Not() Condition {
	if n, ok := c.node.(notNode); ok {
		return Condition{node: n.inner}
	}
	return Condition{node: notNode{inner: c.node}}
}

// Paths returns the sorted set of field paths referenced by the
// condition's leaves. These paths join the type's watched field set.
func (c Condition) Paths() []string {
	if c.node == nil {
		return nil
	}
	set := make(map[string]struct{})
	c.node.collectPaths(set)
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// String renders the condition for hook listings.
func (c Condition) String() string {
	if c.node == nil {
		return ""
	}
	return c.node.String()
}

type andNode struct {
	left, right conditionNode
}

func (n andNode) check(inst Instance) bool {
	return n.left.check(inst) && n.right.check(inst)
}

func (n andNode) collectPaths(out map[string]struct{}) {
	n.left.collectPaths(out)
	n.right.collectPaths(out)
}

func (n andNode) String() string {
	return fmt.Sprintf("(%s AND %s)", n.left, n.right)
}

type orNode struct {
	left, right conditionNode
}

func (n orNode) check(inst Instance) bool {
	return n.left.check(inst) || n.right.check(inst)
}

func (n orNode) collectPaths(out map[string]struct{}) {
	n.left.collectPaths(out)
	n.right.collectPaths(out)
}

func (n orNode) String() string {
	return fmt.Sprintf("(%s OR %s)", n.left, n.right)
}

type notNode struct {
	inner conditionNode
}

func (n notNode) check(inst Instance) bool {
	return !n.inner.check(inst)
}

func (n notNode) collectPaths(out map[string]struct{}) {
	n.inner.collectPaths(out)
}

func (n notNode) String() string {
	return fmt.Sprintf("NOT %s", n.inner)
}

type hasChangedNode struct {
	path string
}

func (n hasChangedNode) check(inst Instance) bool {
	return inst.HasChanged(n.path)
}

func (n hasChangedNode) collectPaths(out map[string]struct{}) {
	out[n.path] = struct{}{}
}

func (n hasChangedNode) String() string {
	return fmt.Sprintf("changed(%s)", n.path)
}

type valueIsNode struct {
	path   string
	value  interface{}
	negate bool
}

func (n valueIsNode) check(inst Instance) bool {
	eq := tracking.Equal(inst.CurrentValue(n.path), n.value)
	return eq != n.negate
}

func (n valueIsNode) collectPaths(out map[string]struct{}) {
	out[n.path] = struct{}{}
}

func (n valueIsNode) String() string {
	if n.negate {
		return fmt.Sprintf("%s != %v", n.path, n.value)
	}
	return fmt.Sprintf("%s == %v", n.path, n.value)
}

type valueWasNode struct {
	path   string
	value  interface{}
	negate bool
}

func (n valueWasNode) check(inst Instance) bool {
	eq := tracking.Equal(inst.InitialValue(n.path), n.value)
	return eq != n.negate
}

func (n valueWasNode) collectPaths(out map[string]struct{}) {
	out[n.path] = struct{}{}
}

func (n valueWasNode) String() string {
	if n.negate {
		return fmt.Sprintf("was(%s) != %v", n.path, n.value)
	}
	return fmt.Sprintf("was(%s) == %v", n.path, n.value)
}

type changesToNode struct {
	path  string
	value interface{}
}

func (n changesToNode) check(inst Instance) bool {
	return inst.HasChanged(n.path) && tracking.Equal(inst.CurrentValue(n.path), n.value)
}

func (n changesToNode) collectPaths(out map[string]struct{}) {
	out[n.path] = struct{}{}
}

func (n changesToNode) String() string {
	return fmt.Sprintf("%s -> %v", n.path, n.value)
}

// WhenFieldHasChanged matches when the field's current value differs from
// its snapshotted value. Fields never snapshotted are treated as unchanged.
func WhenFieldHasChanged(path string) Condition {
	return Condition{node: hasChangedNode{path: path}}
}

// WhenFieldValueIs matches when the field's current value equals value.
func WhenFieldValueIs(path string, value interface{}) Condition {
	return Condition{node: valueIsNode{path: path, value: value}}
}

// WhenFieldValueIsNot matches when the field's current value differs from value.
func WhenFieldValueIsNot(path string, value interface{}) Condition {
	return Condition{node: valueIsNode{path: path, value: value, negate: true}}
}

// WhenFieldValueWas matches when the field's snapshotted value equals value.
func WhenFieldValueWas(path string, value interface{}) Condition {
	return Condition{node: valueWasNode{path: path, value: value}}
}

// WhenFieldValueWasNot matches when the field's snapshotted value differs from value.
func WhenFieldValueWasNot(path string, value interface{}) Condition {
	return Condition{node: valueWasNode{path: path, value: value, negate: true}}
}

// WhenFieldValueChangesTo matches when the field has changed and its
// current value equals value.
func WhenFieldValueChangesTo(path string, value interface{}) Condition {
	return Condition{node: changesToNode{path: path, value: value}}
}
