package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/lifecycle/internal/hooks"
	"github.com/conduit-lang/lifecycle/internal/tracking"
)

// Executor orchestrates hook firing around the store's mutation
// operations. It is stateless across calls and may be shared; per-call
// state lives on the entity and the stack.
type Executor struct {
	store  Store
	queue  *hooks.AsyncQueue
	logger *zap.Logger
}

// NewExecutor creates an executor. The queue is optional: without one,
// the asynchronous save path offloads synchronous hook bodies to plain
// goroutines.
func NewExecutor(store Store, queue *hooks.AsyncQueue, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{store: store, queue: queue, logger: logger}
}

// runState carries the per-mutation firing context through the trigger
// sequence.
type runState struct {
	fields []string           // caller's update-field allow-list, nil when full save
	async  bool               // asynchronous entry point
	snap   *tracking.Snapshot // snapshot override for AFTER_* in async saves
}

// Save runs the synchronous save pipeline:
//
//	BEFORE_SAVE -> BEFORE_CREATE|BEFORE_UPDATE -> persist ->
//	AFTER_CREATE|AFTER_UPDATE -> AFTER_SAVE -> snapshot refresh
//
// Whether this is a creation is decided once, before persistence. A hook
// error aborts the remaining sequence; a BEFORE_* error aborts the
// persist and leaves the snapshot untouched.
func (x *Executor) Save(ctx context.Context, e *Entity, opts ...SaveOption) error {
	o := buildSaveOptions(opts)
	if o.skipHooks {
		return x.store.Save(ctx, e, o.fields)
	}

	isNew := x.store.IsNewRecord(e)
	rs := runState{fields: o.fields}

	if err := x.runHooks(ctx, e, hooks.BeforeSave, rs); err != nil {
		return err
	}
	if isNew {
		if err := x.runHooks(ctx, e, hooks.BeforeCreate, rs); err != nil {
			return err
		}
	} else {
		if err := x.runHooks(ctx, e, hooks.BeforeUpdate, rs); err != nil {
			return err
		}
	}

	if err := x.store.Save(ctx, e, o.fields); err != nil {
		return err
	}

	if isNew {
		if err := x.runHooks(ctx, e, hooks.AfterCreate, rs); err != nil {
			return err
		}
	} else {
		if err := x.runHooks(ctx, e, hooks.AfterUpdate, rs); err != nil {
			return err
		}
	}
	if err := x.runHooks(ctx, e, hooks.AfterSave, rs); err != nil {
		return err
	}

	e.takeSnapshot()
	return nil
}

// SaveAsync mirrors Save for asynchronous callers. Persistence is
// delegated through the synchronous Save path, which would fire hooks a
// second time and refresh the snapshot prematurely; suppression covers
// the first hazard and an explicit snapshot preservation the second, so
// AFTER_* triggers still see the pre-persist before-values. Synchronous
// hook bodies are offloaded so the caller never runs them directly;
// asynchronous bodies are awaited inline.
func (x *Executor) SaveAsync(ctx context.Context, e *Entity, opts ...SaveOption) error {
	o := buildSaveOptions(opts)
	if o.skipHooks {
		restore := e.SuppressHooks()
		defer restore()
		return x.Save(ctx, e, WithUpdateFields(o.fields...))
	}

	isNew := x.store.IsNewRecord(e)
	preserved := e.snapshot.Clone()
	rs := runState{fields: o.fields, async: true}

	if err := x.runHooks(ctx, e, hooks.BeforeSave, rs); err != nil {
		return err
	}
	if isNew {
		if err := x.runHooks(ctx, e, hooks.BeforeCreate, rs); err != nil {
			return err
		}
	} else {
		if err := x.runHooks(ctx, e, hooks.BeforeUpdate, rs); err != nil {
			return err
		}
	}

	restore := e.SuppressHooks()
	err := x.Save(ctx, e, WithUpdateFields(o.fields...))
	restore()
	if err != nil {
		return err
	}

	after := runState{fields: o.fields, async: true, snap: preserved}
	if isNew {
		if err := x.runHooks(ctx, e, hooks.AfterCreate, after); err != nil {
			return err
		}
	} else {
		if err := x.runHooks(ctx, e, hooks.AfterUpdate, after); err != nil {
			return err
		}
	}
	if err := x.runHooks(ctx, e, hooks.AfterSave, after); err != nil {
		return err
	}

	e.takeSnapshot()
	return nil
}

// Delete runs BEFORE_DELETE -> persist-delete -> AFTER_DELETE. The
// snapshot is left as-is.
func (x *Executor) Delete(ctx context.Context, e *Entity) error {
	rs := runState{}

	if err := x.runHooks(ctx, e, hooks.BeforeDelete, rs); err != nil {
		return err
	}
	if err := x.store.Delete(ctx, e); err != nil {
		return err
	}
	return x.runHooks(ctx, e, hooks.AfterDelete, rs)
}

// runHooks fires one trigger's descriptor list in registry order,
// filtering each descriptor independently.
func (x *Executor) runHooks(ctx context.Context, e *Entity, trigger hooks.Trigger, rs runState) error {
	list := e.typ.Table().Hooks(trigger)
	if len(list) == 0 || e.suppressed {
		return nil
	}

	snap := e.snapshot
	if rs.snap != nil {
		snap = rs.snap
	}
	inst := instanceView{entity: e, snap: snap}

	for _, d := range list {
		// A partial save that does not touch the watched field makes the
		// hook irrelevant for this call.
		if len(rs.fields) > 0 && d.When != "" && !containsField(rs.fields, d.When) {
			continue
		}

		if d.When != "" {
			current := e.Get(d.When)
			initial := snap.Value(d.When)

			if d.WhenChanged && tracking.Equal(current, initial) {
				continue
			}
			if d.Was != hooks.Wildcard && !tracking.Equal(initial, d.Was) {
				continue
			}
			if d.IsNow != hooks.Wildcard && !tracking.Equal(current, d.IsNow) {
				continue
			}
		}

		if !d.Condition.IsZero() && !d.Condition.Check(inst) {
			continue
		}

		// Synchronous execution never invokes asynchronous hooks.
		if d.Async && !rs.async {
			continue
		}

		m, ok := e.typ.Method(d.MethodName)
		if !ok {
			return fmt.Errorf("hook %s (%s): method not bound", d.MethodName, trigger)
		}

		if d.OnCommit {
			x.deferHook(ctx, d, m, inst)
			continue
		}

		var err error
		if rs.async && !d.Async {
			err = x.offload(ctx, d, m, inst)
		} else {
			err = m.Fn(ctx, inst)
		}
		if err != nil {
			return fmt.Errorf("hook %s (%s) failed: %w", d.MethodName, trigger, err)
		}

		x.logger.Debug("hook fired",
			zap.String("type", e.typ.Name()),
			zap.String("trigger", trigger.String()),
			zap.String("method", d.MethodName))
	}

	return nil
}

// deferHook hands the invocation to the store's post-commit queue. Once
// deferred, a failure only surfaces to whoever drains that queue; it is
// logged here because the mutation call has already returned.
func (x *Executor) deferHook(ctx context.Context, d *hooks.Descriptor, m *hooks.Method, inst hooks.Instance) {
	name := d.MethodName
	trigger := d.Trigger
	x.store.DeferUntilCommit(ctx, func() {
		if err := m.Fn(ctx, inst); err != nil {
			x.logger.Error("deferred hook failed",
				zap.String("trigger", trigger.String()),
				zap.String("method", name),
				zap.Error(err))
		}
	})
}

// offload runs a synchronous hook body off the caller's goroutine and
// waits for the result, keeping the pipeline strictly sequential.
func (x *Executor) offload(ctx context.Context, d *hooks.Descriptor, m *hooks.Method, inst hooks.Instance) error {
	if x.queue != nil {
		return x.queue.Submit(hooks.Task{
			Name: fmt.Sprintf("%s_%s", d.MethodName, d.Trigger),
			Fn:   func(context.Context) error { return m.Fn(ctx, inst) },
		})
	}

	done := make(chan error, 1)
	go func() { done <- m.Fn(ctx, inst) }()
	return <-done
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
