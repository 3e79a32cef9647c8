package ecs

import "github.com/pkg/errors"

// Sentinel error kinds, spec.md §7. Wrap with errors.Wrapf for call-site
// context; unwrap with errors.Is / errors.Cause.
var (
	// ErrInvalidHandle: operation on an entity whose world_id is zero, or
	// whose version mismatches the slot's current version.
	ErrInvalidHandle = errors.New("ecs: invalid entity handle")

	// ErrForeignEntity: SetSameAs across worlds.
	ErrForeignEntity = errors.New("ecs: entity belongs to a different world")

	// ErrMissingComponent: SetSameAs when the reference lacks T, or
	// NotifyChanged when the entity lacks T.
	ErrMissingComponent = errors.New("ecs: entity does not have the requested component")

	// ErrMaxComponents: pool full for a non-flag type.
	ErrMaxComponents = errors.New("ecs: component pool is at capacity")

	// ErrSerialization: parser encountered an unknown type token, a
	// malformed number, or a component before any Entity line.
	ErrSerialization = errors.New("ecs: serialization error")

	// ErrNullArgument: serializer/cloner given an absent stream or reader.
	ErrNullArgument = errors.New("ecs: required argument was nil")

	// ErrWorldFull: CreateEntity when alive count has reached MaxEntities.
	ErrWorldFull = errors.New("ecs: world has reached its maximum entity count")
)
