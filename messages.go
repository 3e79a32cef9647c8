package ecs

// Lifecycle messages published on a World's Publisher (spec.md §4.4). The
// generic ones are parameterized per component type T, matching
// EntityComponentAdded<T> etc. in the spec's taxonomy; Subscribe[M] keys
// off the concrete instantiation, so EntityComponentAdded[Position] and
// EntityComponentAdded[Velocity] are distinct message types.

// EntityCreated is published after a slot is allocated and its enabled
// flag is set.
type EntityCreated struct{ Entity Entity }

// EntityDisposing is published before any pool removes the entity's
// components; query sets still see the entity as a member at this point.
type EntityDisposing struct{ Entity Entity }

// EntityDisposed is published after EntityDisposing; pools remove their
// entries for this entity in response to it.
type EntityDisposed struct{ Entity Entity }

// EntityEnabled / EntityDisabled bracket the reserved "enabled" flag.
type EntityEnabled struct{ Entity Entity }
type EntityDisabled struct{ Entity Entity }

// EntityComponentAdded[T] is published when T is newly attached to Entity.
type EntityComponentAdded[T any] struct{ Entity Entity }

// EntityComponentChanged[T] is published when Set replaces an existing T.
type EntityComponentChanged[T any] struct{ Entity Entity }

// EntityComponentRemoved[T] is published right before a T slot reference
// is dropped for Entity.
type EntityComponentRemoved[T any] struct{ Entity Entity }

// EntityComponentEnabled[T] / EntityComponentDisabled[T] are reserved for
// per-component enable/disable tracking layered on top of the world-level
// enabled flag (spec.md §4.4 lists them in the core taxonomy; this module
// does not yet drive them from a dedicated operation beyond the world-wide
// Enable/Disable, since spec.md names no separate per-component toggle
// operation).
type EntityComponentEnabled[T any] struct{ Entity Entity }
type EntityComponentDisabled[T any] struct{ Entity Entity }

// EntityCopy is published by World.CopyTo; each pool subscribes and, if
// the source entity has its T, copies it onto Dst. Err is a shared
// out-parameter: a handler that fails records the first error into it
// without aborting dispatch of the remaining pools (Publisher has no
// early-exit), and CopyTo consults it once dispatch returns to decide
// whether to roll Dst back (spec.md §4.6).
type EntityCopy struct {
	Src Entity
	Dst Entity
	Err *error
}

// ComponentTypeRead is published by World.ReadAllComponentTypes; each pool
// invokes reader.OnReadType[T] in response.
type ComponentTypeRead struct{ Reader TypeReader }

// ComponentRead is published to ask every pool holding a component for
// Entity to hand it to reader.
type ComponentRead struct {
	Entity Entity
	Reader Reader
}

// TrimExcess names a request to release unused backing capacity. Nothing
// in this module publishes it, and no pool subscribes to it.
type TrimExcess struct{}

// changeKind distinguishes the three ways a component flag transitions,
// for consumers of componentFlagEvent.
type changeKind uint8

const (
	flagAdded changeKind = iota
	flagChanged
	flagRemoved
)

// componentFlagEvent is the type-erased counterpart every pool publishes
// alongside its typed EntityComponentAdded[T]/Changed[T]/Removed[T]
// message. Query sets are built generically over a runtime Filter and so
// cannot Subscribe[EntityComponentAdded[T]] for a T chosen at runtime;
// subscribing once to this single erased message and filtering on Flag is
// the "TypeMap -> ErasedHandlerList plus a small typed facade" pattern
// spec.md §9 calls for, applied to the query-set side of the bus rather
// than only the user-facing Subscribe/Publish facade.
type componentFlagEvent struct {
	Entity Entity
	Flag   uint
	Kind   changeKind
}
