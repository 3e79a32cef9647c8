package ecs

// ComponentCloner lets a component type override the default Set(dst,
// Get(src)) behavior World.CopyTo uses, per spec.md §4.6 -- useful for
// components holding resources that must not be shallow-copied (pooled
// handles, reference-counted buffers).
type ComponentCloner[T any] interface {
	Clone(src T) T
}

// clonerRegistration installs cloner as the copy strategy for T on w by
// subscribing a second EntityCopy handler after the pool's default one:
// the default shallow copy still runs first, and this handler's Set of
// cloner.Clone's result then overwrites it. A panic from cloner.Clone, or a failing Set, is
// caught by World.CopyTo, which disposes the whole destination entity
// (spec.md §4.6); this handler only needs to record the Set failure.
func clonerRegistration[T any](w *World, cloner ComponentCloner[T]) Subscription {
	p := poolFor[T](w)
	return Subscribe(w.publisher, func(m EntityCopy) {
		if !p.has(m.Src.EntityID) {
			return
		}
		src := *p.Get(m.Src)
		cloned := cloner.Clone(src)
		if _, err := p.Set(m.Dst, cloned); err != nil && m.Err != nil && *m.Err == nil {
			*m.Err = err
		}
	})
}

// RegisterCloner installs cloner as T's copy strategy for w. The returned
// Subscription unregisters it, reverting to the pool's default shallow
// copy.
func RegisterCloner[T any](w *World, cloner ComponentCloner[T]) Subscription {
	return clonerRegistration[T](w, cloner)
}
