package ecs

import "reflect"

// poolRegistry maps a component type to its erased pool, one instance per
// World. This is the teacher's resources.go (a reflect.Type-keyed store)
// materially rewritten: resources.go indexed resources by a reused integer
// ID with a free list, which a pool registry doesn't need (pools live for
// the lifetime of their World and are never individually removed), so this
// version drops the ID/free-list machinery and keeps only the lookup-or-
// create shape spec.md §9 asks for: "an explicit registry owned by the
// World, keyed by (TypeId, WorldId)" instead of a hidden package-global
// map.
type poolRegistry struct {
	pools map[reflect.Type]erasedPool
}

func newPoolRegistry() *poolRegistry {
	return &poolRegistry{pools: make(map[reflect.Type]erasedPool)}
}

func (r *poolRegistry) get(t reflect.Type) (erasedPool, bool) {
	p, ok := r.pools[t]
	return p, ok
}

func (r *poolRegistry) set(t reflect.Type, p erasedPool) {
	r.pools[t] = p
}

func (r *poolRegistry) all() []erasedPool {
	out := make([]erasedPool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}

// poolFor returns (creating if necessary) the ComponentPool[T] for w,
// registering its bus subscriptions on first creation.
func poolFor[T any](w *World) *ComponentPool[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if p, ok := w.pools.get(t); ok {
		return p.(*ComponentPool[T])
	}
	p := newComponentPool[T](w)
	w.pools.set(t, p)
	return p
}
