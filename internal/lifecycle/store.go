package lifecycle

import "context"

// Store is the persistence collaborator the executor drives. The
// executor never touches storage directly; it decides hook firing around
// these calls.
type Store interface {
	// IsNewRecord reports whether the entity has no persisted identity
	// yet. Queried once at the start of a save, before persistence.
	IsNewRecord(e *Entity) bool

	// Save writes the entity. A non-empty fields slice restricts the
	// write to that allow-list of fields.
	Save(ctx context.Context, e *Entity, fields []string) error

	// Delete removes the entity.
	Delete(ctx context.Context, e *Entity) error

	// DeferUntilCommit schedules fn to run once after the active
	// transaction commits, or immediately if none is active.
	DeferUntilCommit(ctx context.Context, fn func())
}
