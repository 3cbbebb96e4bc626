package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/lifecycle/internal/hooks"
	"github.com/conduit-lang/lifecycle/internal/schema"
)

// callLog records hook invocations; async offloading may touch it from
// another goroutine.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.get() {
		if c == name {
			n++
		}
	}
	return n
}

// fakeStore implements Store in-memory and records interactions.
type fakeStore struct {
	saves    int
	deletes  int
	nextID   int
	inTx     bool
	deferred []func()
	failSave error
}

func (s *fakeStore) IsNewRecord(e *Entity) bool {
	pk := e.PrimaryKey()
	return pk == nil || pk == ""
}

func (s *fakeStore) Save(ctx context.Context, e *Entity, fields []string) error {
	if s.failSave != nil {
		return s.failSave
	}
	if s.IsNewRecord(e) {
		s.nextID++
		e.Set("id", fmt.Sprintf("id-%d", s.nextID))
	}
	s.saves++
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, e *Entity) error {
	s.deletes++
	return nil
}

func (s *fakeStore) DeferUntilCommit(ctx context.Context, fn func()) {
	if s.inTx {
		s.deferred = append(s.deferred, fn)
		return
	}
	fn()
}

func (s *fakeStore) commit() {
	deferred := s.deferred
	s.deferred = nil
	for _, fn := range deferred {
		fn()
	}
}

func articleSchema() *schema.ResourceSchema {
	return schema.NewResourceSchema("Article").
		AddField(&schema.Field{Name: "id", Type: schema.TypeUUID, PrimaryKey: true}).
		AddField(&schema.Field{Name: "title", Type: schema.TypeString}).
		AddField(&schema.Field{Name: "status", Type: schema.TypeString}).
		AddField(&schema.Field{Name: "content", Type: schema.TypeText})
}

// logMethod returns a hook body that appends its name to the log.
func logMethod(log *callLog, name string) hooks.HookFunc {
	return func(ctx context.Context, inst hooks.Instance) error {
		log.add(name)
		return nil
	}
}

func buildType(t *testing.T, configure func(*Definition)) *Type {
	t.Helper()
	def := NewDefinition(articleSchema())
	configure(def)
	ty, err := def.Build()
	require.NoError(t, err)
	return ty
}

func newExecutor(store Store) *Executor {
	return NewExecutor(store, nil, nil)
}

func TestSave_CreateLifecycleOrder(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_before_save", logMethod(log, "before_save")).
			Method("on_before_create", logMethod(log, "before_create")).
			Method("on_before_update", logMethod(log, "before_update")).
			Method("on_after_create", logMethod(log, "after_create")).
			Method("on_after_update", logMethod(log, "after_update")).
			Method("on_after_save", logMethod(log, "after_save")).
			On("on_before_save", hooks.BeforeSave).
			On("on_before_create", hooks.BeforeCreate).
			On("on_before_update", hooks.BeforeUpdate).
			On("on_after_create", hooks.AfterCreate).
			On("on_after_update", hooks.AfterUpdate).
			On("on_after_save", hooks.AfterSave)
	})

	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "Hello", "status": "new"})
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"before_save", "before_create", "after_create", "after_save"}, log.get())
	assert.Equal(t, 1, store.saves)
}

func TestSave_UpdateLifecycleOrder(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_before_save", logMethod(log, "before_save")).
			Method("on_before_create", logMethod(log, "before_create")).
			Method("on_before_update", logMethod(log, "before_update")).
			Method("on_after_create", logMethod(log, "after_create")).
			Method("on_after_update", logMethod(log, "after_update")).
			Method("on_after_save", logMethod(log, "after_save")).
			On("on_before_save", hooks.BeforeSave).
			On("on_before_create", hooks.BeforeCreate).
			On("on_before_update", hooks.BeforeUpdate).
			On("on_after_create", hooks.AfterCreate).
			On("on_after_update", hooks.AfterUpdate).
			On("on_after_save", hooks.AfterSave)
	})

	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "title": "Hello", "status": "new"})
	e.Set("title", "Updated")
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"before_save", "before_update", "after_update", "after_save"}, log.get())
}

func TestSave_PriorityOrder(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		// Declared lowest-first; priorities must win.
		d.Method("low", logMethod(log, "low")).
			Method("mid", logMethod(log, "mid")).
			Method("high", logMethod(log, "high")).
			On("low", hooks.BeforeSave).
			On("mid", hooks.BeforeSave, hooks.WithPriority(10)).
			On("high", hooks.BeforeSave, hooks.WithPriority(20))
	})

	x := newExecutor(&fakeStore{})
	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"high", "mid", "low"}, log.get())
}

func TestSave_StatusTransitionShorthand(t *testing.T) {
	newType := func(log *callLog) *Type {
		return buildType(t, func(d *Definition) {
			d.Method("on_done", logMethod(log, "on_done")).
				On("on_done", hooks.AfterUpdate,
					hooks.When("status"), hooks.Was("new"), hooks.IsNow("done"))
		})
	}

	t.Run("matching transition fires", func(t *testing.T) {
		log := &callLog{}
		x := newExecutor(&fakeStore{})
		e := newType(log).Load(map[string]interface{}{"id": "a1", "status": "new"})
		e.Set("status", "done")
		require.NoError(t, x.Save(context.Background(), e))
		assert.Equal(t, []string{"on_done"}, log.get())
	})

	t.Run("other transition does not fire", func(t *testing.T) {
		log := &callLog{}
		x := newExecutor(&fakeStore{})
		e := newType(log).Load(map[string]interface{}{"id": "a1", "status": "new"})
		e.Set("status", "wip")
		require.NoError(t, x.Save(context.Background(), e))
		assert.Empty(t, log.get())
	})
}

func TestSave_WhenChanged(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_change", logMethod(log, "on_change")).
			On("on_change", hooks.BeforeUpdate, hooks.When("title"), hooks.WhenChanged())
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "title": "Hello"})
	require.NoError(t, x.Save(context.Background(), e))
	assert.Empty(t, log.get(), "unchanged field should not fire")

	e.Set("title", "Changed")
	require.NoError(t, x.Save(context.Background(), e))
	assert.Equal(t, []string{"on_change"}, log.get())
}

func TestSave_UpdateFieldsRestriction(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_title", logMethod(log, "on_title")).
			Method("on_status", logMethod(log, "on_status")).
			On("on_title", hooks.BeforeUpdate, hooks.When("title"), hooks.WhenChanged()).
			On("on_status", hooks.BeforeUpdate, hooks.When("status"), hooks.WhenChanged())
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "title": "Hello", "status": "new"})
	e.Set("title", "Changed")
	e.Set("status", "done")

	// Both fields changed in memory, but the save only persists title.
	require.NoError(t, x.Save(context.Background(), e, WithUpdateFields("title")))

	assert.Equal(t, []string{"on_title"}, log.get(),
		"hook watching an excluded field must be suppressed")
}

func TestSave_ConditionAndShorthandAreIndependent(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("gated", logMethod(log, "gated")).
			On("gated", hooks.AfterUpdate,
				hooks.When("status"), hooks.IsNow("done"),
				hooks.If(hooks.WhenFieldValueIs("title", "Special")))
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "status": "new", "title": "Plain"})
	e.Set("status", "done")
	require.NoError(t, x.Save(context.Background(), e))
	assert.Empty(t, log.get(), "failing condition must veto a passing shorthand")

	e2 := ty.Load(map[string]interface{}{"id": "a2", "status": "new", "title": "Special"})
	e2.Set("status", "done")
	require.NoError(t, x.Save(context.Background(), e2))
	assert.Equal(t, []string{"gated"}, log.get())
}

func TestSave_ConditionGating(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("notify", logMethod(log, "notify")).
			On("notify", hooks.AfterSave,
				hooks.If(hooks.WhenFieldValueChangesTo("status", "published")))
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "status": "draft"})
	e.Set("status", "published")
	require.NoError(t, x.Save(context.Background(), e))
	assert.Equal(t, []string{"notify"}, log.get())

	// Already published: unchanged, no fire.
	e.Set("status", "published")
	require.NoError(t, x.Save(context.Background(), e))
	assert.Equal(t, []string{"notify"}, log.get())
}

func TestSave_SkipsAsyncHooks(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("sync_hook", logMethod(log, "sync_hook")).
			AsyncMethod("async_hook", logMethod(log, "async_hook")).
			On("sync_hook", hooks.AfterSave).
			On("async_hook", hooks.AfterSave)
	})
	x := newExecutor(&fakeStore{})

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"sync_hook"}, log.get(),
		"synchronous save must never invoke asynchronous hooks")
}

func TestSave_WithoutHooks(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_save", logMethod(log, "on_save")).
			On("on_save", hooks.BeforeSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.Save(context.Background(), e, WithoutHooks()))

	assert.Empty(t, log.get())
	assert.Equal(t, 1, store.saves)
}

func TestSave_BeforeHookErrorAbortsPersist(t *testing.T) {
	boom := errors.New("boom")
	ty := buildType(t, func(d *Definition) {
		d.Method("failing", func(ctx context.Context, inst hooks.Instance) error {
			return boom
		}).On("failing", hooks.BeforeSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	err := x.Save(context.Background(), e)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.saves, "persistence must not happen after a BEFORE_* failure")
}

func TestSave_AfterHookErrorKeepsPersistAndSkipsRefresh(t *testing.T) {
	boom := errors.New("boom")
	ty := buildType(t, func(d *Definition) {
		d.Method("watching", logMethod(&callLog{}, "watching")).
			Method("failing", func(ctx context.Context, inst hooks.Instance) error {
				return boom
			}).
			On("watching", hooks.BeforeUpdate, hooks.When("status"), hooks.WhenChanged()).
			On("failing", hooks.AfterSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.Load(map[string]interface{}{"id": "a1", "status": "new"})
	e.Set("status", "done")

	err := x.Save(context.Background(), e)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.saves, "AFTER_* failures do not roll back persistence")
	assert.True(t, e.HasChanged("status"),
		"failed pipeline must not refresh the snapshot")
}

func TestSave_RefreshesSnapshot(t *testing.T) {
	ty := buildType(t, func(d *Definition) {
		d.Method("noop", logMethod(&callLog{}, "noop")).
			On("noop", hooks.BeforeSave, hooks.When("status"))
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "status": "new"})
	e.Set("status", "done")
	assert.True(t, e.HasChanged("status"))

	require.NoError(t, x.Save(context.Background(), e))
	assert.False(t, e.HasChanged("status"), "snapshot must refresh after a successful save")
	assert.Equal(t, "done", e.InitialValue("status"))

	e.Set("status", "archived")
	assert.True(t, e.HasChanged("status"))
	assert.Equal(t, "done", e.InitialValue("status"))
}

func TestSuppression_Scoped(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_save", logMethod(log, "on_save")).
			On("on_save", hooks.BeforeSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)
	e := ty.New(map[string]interface{}{"title": "t"})

	restore := e.SuppressHooks()
	inner := e.SuppressHooks()
	require.NoError(t, x.Save(context.Background(), e))
	inner()
	require.NoError(t, x.Save(context.Background(), e))
	restore()

	assert.Empty(t, log.get(), "no hook fires inside nested suppression scopes")
	assert.Equal(t, 2, store.saves, "persistence still happens while suppressed")

	require.NoError(t, x.Save(context.Background(), e))
	assert.Equal(t, []string{"on_save"}, log.get(), "hooks resume once scopes exit")
}

func TestDelete_LifecycleOrder(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_before_delete", logMethod(log, "before_delete")).
			Method("on_after_delete", logMethod(log, "after_delete")).
			On("on_before_delete", hooks.BeforeDelete).
			On("on_after_delete", hooks.AfterDelete)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.Load(map[string]interface{}{"id": "a1"})
	require.NoError(t, x.Delete(context.Background(), e))

	assert.Equal(t, []string{"before_delete", "after_delete"}, log.get())
	assert.Equal(t, 1, store.deletes)
}

func TestDelete_Suppressed(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_before_delete", logMethod(log, "before_delete")).
			On("on_before_delete", hooks.BeforeDelete)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.Load(map[string]interface{}{"id": "a1"})
	restore := e.SuppressHooks()
	defer restore()

	require.NoError(t, x.Delete(context.Background(), e))
	assert.Empty(t, log.get())
	assert.Equal(t, 1, store.deletes)
}

func TestOnCommit_DeferredToStore(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("deferred", logMethod(log, "deferred")).
			Method("inline", logMethod(log, "inline")).
			On("deferred", hooks.AfterSave, hooks.OnCommit()).
			On("inline", hooks.AfterSave)
	})
	store := &fakeStore{inTx: true}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"inline"}, log.get(), "deferred hook must not run before commit")
	require.Len(t, store.deferred, 1)

	store.commit()
	assert.Equal(t, []string{"inline", "deferred"}, log.get())
}

func TestOnCommit_ImmediateWithoutTransaction(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("deferred", logMethod(log, "deferred")).
			On("deferred", hooks.AfterSave, hooks.OnCommit())
	})
	x := newExecutor(&fakeStore{})

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.Save(context.Background(), e))

	assert.Equal(t, []string{"deferred"}, log.get())
}

func TestSaveAsync_NoDoubleInvocation(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("sync_after", logMethod(log, "sync_after")).
			AsyncMethod("async_after", logMethod(log, "async_after")).
			Method("sync_before", logMethod(log, "sync_before")).
			On("sync_after", hooks.AfterSave).
			On("async_after", hooks.AfterSave).
			On("sync_before", hooks.BeforeCreate)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.SaveAsync(context.Background(), e))

	assert.Equal(t, 1, log.count("sync_after"), "sync hook must run exactly once")
	assert.Equal(t, 1, log.count("async_after"), "async hook must run exactly once")
	assert.Equal(t, 1, log.count("sync_before"))
	assert.Equal(t, 1, store.saves)
}

func TestSaveAsync_PreservesBeforeValues(t *testing.T) {
	log := &callLog{}
	var seenInitial interface{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_transition", func(ctx context.Context, inst hooks.Instance) error {
			seenInitial = inst.InitialValue("status")
			log.add("on_transition")
			return nil
		}).On("on_transition", hooks.AfterSave,
			hooks.When("status"), hooks.Was("new"), hooks.IsNow("done"))
	})
	x := newExecutor(&fakeStore{})

	e := ty.Load(map[string]interface{}{"id": "a1", "status": "new"})
	e.Set("status", "done")
	require.NoError(t, x.SaveAsync(context.Background(), e))

	assert.Equal(t, []string{"on_transition"}, log.get(),
		"AFTER_* must see the pre-persist before-values despite the internal save delegation")
	assert.Equal(t, "new", seenInitial)

	// And the snapshot is refreshed once the pipeline finishes.
	assert.False(t, e.HasChanged("status"))
}

func TestSaveAsync_WithQueue(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("sync_after", logMethod(log, "sync_after")).
			On("sync_after", hooks.AfterSave)
	})

	queue := hooks.NewAsyncQueue(2, nil)
	queue.Start()
	defer queue.Shutdown()

	x := NewExecutor(&fakeStore{}, queue, nil)
	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.SaveAsync(context.Background(), e))

	assert.Equal(t, 1, log.count("sync_after"))
}

func TestSaveAsync_SkipHooks(t *testing.T) {
	log := &callLog{}
	ty := buildType(t, func(d *Definition) {
		d.Method("on_save", logMethod(log, "on_save")).
			On("on_save", hooks.BeforeSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	require.NoError(t, x.SaveAsync(context.Background(), e, WithoutHooks()))

	assert.Empty(t, log.get())
	assert.Equal(t, 1, store.saves)
	assert.False(t, e.HooksSuppressed(), "suppression must be restored after the call")
}

func TestSaveAsync_ErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	ty := buildType(t, func(d *Definition) {
		d.Method("failing", func(ctx context.Context, inst hooks.Instance) error {
			return boom
		}).On("failing", hooks.BeforeSave)
	})
	store := &fakeStore{}
	x := newExecutor(store)

	e := ty.New(map[string]interface{}{"title": "t"})
	err := x.SaveAsync(context.Background(), e)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.saves)
	assert.False(t, e.HooksSuppressed())
}

func TestTypeRegistry_DuplicateType(t *testing.T) {
	reg := NewTypeRegistry()

	_, err := reg.Register(NewDefinition(articleSchema()))
	require.NoError(t, err)

	_, err = reg.Register(NewDefinition(articleSchema()))
	require.Error(t, err)
}

func TestTypeRegistry_ListHooks(t *testing.T) {
	reg := NewTypeRegistry()

	def := NewDefinition(articleSchema()).
		Method("noop", logMethod(&callLog{}, "noop")).
		On("noop", hooks.BeforeSave, hooks.When("status"))
	_, err := reg.Register(def)
	require.NoError(t, err)

	all, ok := reg.ListHooks("Article")
	require.True(t, ok)
	require.Len(t, all[hooks.BeforeSave], 1)
	assert.Equal(t, "noop", all[hooks.BeforeSave][0].MethodName)

	_, ok = reg.ListHooks("Missing")
	assert.False(t, ok)
}

func TestTypeRegistry_Check(t *testing.T) {
	reg := NewTypeRegistry()

	def := NewDefinition(articleSchema()).
		Method("bad", logMethod(&callLog{}, "bad")).
		On("bad", hooks.BeforeSave, hooks.When("no_such_field"))
	_, err := reg.Register(def)
	require.NoError(t, err)

	diags := reg.Check()
	require.Len(t, diags, 1)
	assert.Equal(t, "no_such_field", diags[0].Path)
}
