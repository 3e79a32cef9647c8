package ecs

import "github.com/tidwall/btree"

// Comparable is the ordering contract required by EntitySortedSet's key
// component type.
type Comparable[T any] interface {
	CompareTo(other T) int
}

// sortedEntry is the btree element: an entity paired with its last-known
// sort key. The key is cached rather than re-read from the component pool
// on every comparison, since Less must stay consistent with the tree's
// current shape even while Comp is being mutated elsewhere (spec.md §4.5).
type sortedEntry[Comp any] struct {
	entity Entity
	key    Comp
}

// EntitySortedSet is an EntitySet variant ordered by a component's value,
// per spec.md §4.5. Comp must implement Comparable[Comp]; ties break by
// entity id so the tree never collapses distinct entities with equal keys.
type EntitySortedSet[Comp Comparable[Comp]] struct {
	world  *World
	filter Filter
	pool   *ComponentPool[Comp]

	tree *btree.BTreeG[sortedEntry[Comp]]
	keys map[EntityID]Comp

	dirty map[EntityID]Entity

	subs []Subscription
}

func sortedLess[Comp Comparable[Comp]](a, b sortedEntry[Comp]) bool {
	if c := a.key.CompareTo(b.key); c != 0 {
		return c < 0
	}
	if a.entity.WorldID != b.entity.WorldID {
		return a.entity.WorldID < b.entity.WorldID
	}
	return a.entity.EntityID < b.entity.EntityID
}

// NewEntitySortedSet builds a sorted set over w, ordered by the current
// values of the Comp pool. filter's with/without/either terms narrow
// membership the same way EntitySet's do; Comp need not be named in them,
// as it is implicitly required.
func NewEntitySortedSet[Comp Comparable[Comp]](w *World, filter Filter) *EntitySortedSet[Comp] {
	s := &EntitySortedSet[Comp]{
		world:  w,
		filter: filter,
		pool:   poolFor[Comp](w),
		tree:   btree.NewBTreeG(sortedLess[Comp]),
		keys:   make(map[EntityID]Comp),
		dirty:  make(map[EntityID]Entity),
	}
	s.subscribe()

	for _, e := range w.AliveEntities() {
		if w.infos[e.EntityID].components.matches(&s.filter) && s.pool.Has(e) {
			s.insert(e)
		}
	}

	w.registerOptimizable(s)
	return s
}

func (s *EntitySortedSet[Comp]) subscribe() {
	s.subs = append(s.subs,
		Subscribe(s.world.publisher, func(m EntityDisposed) { s.erase(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityEnabled) { s.reevaluate(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityDisabled) { s.reevaluate(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityComponentAdded[Comp]) { s.reevaluate(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityComponentRemoved[Comp]) { s.erase(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityComponentChanged[Comp]) { s.markDirty(m.Entity) }),
		Subscribe(s.world.publisher, func(m componentFlagEvent) {
			if m.Flag != s.pool.flag() && s.filter.relevantFlag(m.Flag) {
				s.reevaluate(m.Entity)
			}
		}),
	)
}

func (s *EntitySortedSet[Comp]) currentKey(e Entity) (Comp, bool) {
	if !s.pool.Has(e) {
		var zero Comp
		return zero, false
	}
	return *s.pool.Get(e), true
}

func (s *EntitySortedSet[Comp]) insert(e Entity) {
	key, ok := s.currentKey(e)
	if !ok {
		return
	}
	s.tree.Set(sortedEntry[Comp]{entity: e, key: key})
	s.keys[e.EntityID] = key
}

func (s *EntitySortedSet[Comp]) erase(e Entity) {
	if key, ok := s.keys[e.EntityID]; ok {
		s.tree.Delete(sortedEntry[Comp]{entity: e, key: key})
		delete(s.keys, e.EntityID)
	}
	delete(s.dirty, e.EntityID)
}

func (s *EntitySortedSet[Comp]) reevaluate(e Entity) {
	matches := s.world.infos[e.EntityID].components.matches(&s.filter) && s.pool.Has(e)
	_, member := s.keys[e.EntityID]
	switch {
	case matches && !member:
		s.insert(e)
	case !matches && member:
		s.erase(e)
	}
}

// markDirty defers re-placement of e until Complete/Optimize, since Comp
// just changed and its old tree position may now be wrong (spec.md §4.5's
// EntitySortedSet note on deferred re-sort cost).
func (s *EntitySortedSet[Comp]) markDirty(e Entity) {
	if _, member := s.keys[e.EntityID]; member {
		s.dirty[e.EntityID] = e
	}
}

func (s *EntitySortedSet[Comp]) optimize() {
	s.Complete()
}

// Complete flushes deferred key changes, removing and reinserting every
// entity whose Comp changed since the last flush.
func (s *EntitySortedSet[Comp]) Complete() {
	for id, e := range s.dirty {
		if oldKey, ok := s.keys[id]; ok {
			s.tree.Delete(sortedEntry[Comp]{entity: e, key: oldKey})
		}
		s.insert(e)
	}
	clear(s.dirty)
}

// Count returns the number of matching entities.
func (s *EntitySortedSet[Comp]) Count() int { return s.tree.Len() }

// Contains reports whether e is currently a member.
func (s *EntitySortedSet[Comp]) Contains(e Entity) bool {
	_, ok := s.keys[e.EntityID]
	return ok
}

// Ascend visits members in ascending key order, stopping early if fn
// returns false.
func (s *EntitySortedSet[Comp]) Ascend(fn func(e Entity, key Comp) bool) {
	s.tree.Scan(func(item sortedEntry[Comp]) bool {
		return fn(item.entity, item.key)
	})
}

// Entities returns a freshly built snapshot of every member entity in
// ascending key order (spec.md §4.5's common entities() view).
func (s *EntitySortedSet[Comp]) Entities() []Entity {
	out := make([]Entity, 0, s.tree.Len())
	s.tree.Scan(func(item sortedEntry[Comp]) bool {
		out = append(out, item.entity)
		return true
	})
	return out
}

// Unsubscribe releases the set's bus subscriptions.
func (s *EntitySortedSet[Comp]) Unsubscribe() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
}
