package ecs

// EntityMap is a query-set variant keyed by a component's value rather than
// ordered by it (spec.md §4.5). K is the key extracted from the component
// type Comp via keyFn; the plain Go map backing this is the standard-
// library choice documented in DESIGN.md, since no pack library models an
// unbounded, non-evicting, unique key->entity index any better than one.
type EntityMap[K comparable, Comp any] struct {
	world  *World
	filter Filter
	pool   *ComponentPool[Comp]
	keyFn  func(Comp) K

	index map[K]Entity
	keys  map[EntityID]K

	subs []Subscription
}

// NewEntityMap builds a map keyed by keyFn(Comp) over entities matching
// filter and holding Comp.
func NewEntityMap[K comparable, Comp any](w *World, filter Filter, keyFn func(Comp) K) *EntityMap[K, Comp] {
	m := &EntityMap[K, Comp]{
		world:  w,
		filter: filter,
		pool:   poolFor[Comp](w),
		keyFn:  keyFn,
		index:  make(map[K]Entity),
		keys:   make(map[EntityID]K),
	}
	m.subscribe()

	for _, e := range w.AliveEntities() {
		if w.infos[e.EntityID].components.matches(&m.filter) && m.pool.Has(e) {
			m.insert(e)
		}
	}
	return m
}

func (m *EntityMap[K, Comp]) subscribe() {
	m.subs = append(m.subs,
		Subscribe(m.world.publisher, func(msg EntityDisposed) { m.erase(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg EntityEnabled) { m.reevaluate(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg EntityDisabled) { m.reevaluate(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg EntityComponentAdded[Comp]) { m.reevaluate(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg EntityComponentChanged[Comp]) { m.reevaluate(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg EntityComponentRemoved[Comp]) { m.erase(msg.Entity) }),
		Subscribe(m.world.publisher, func(msg componentFlagEvent) {
			if msg.Flag != m.pool.flag() && m.filter.relevantFlag(msg.Flag) {
				m.reevaluate(msg.Entity)
			}
		}),
	)
}

func (m *EntityMap[K, Comp]) insert(e Entity) {
	key := m.keyFn(*m.pool.Get(e))
	if old, ok := m.keys[e.EntityID]; ok && old != key {
		delete(m.index, old)
	}
	// last writer wins: the previous holder of key loses its binding.
	if prev, ok := m.index[key]; ok && prev.EntityID != e.EntityID {
		delete(m.keys, prev.EntityID)
	}
	m.index[key] = e
	m.keys[e.EntityID] = key
}

func (m *EntityMap[K, Comp]) erase(e Entity) {
	if key, ok := m.keys[e.EntityID]; ok {
		delete(m.index, key)
		delete(m.keys, e.EntityID)
	}
}

func (m *EntityMap[K, Comp]) reevaluate(e Entity) {
	matches := m.world.infos[e.EntityID].components.matches(&m.filter) && m.pool.Has(e)
	_, member := m.keys[e.EntityID]
	switch {
	case matches:
		m.insert(e)
	case !matches && member:
		m.erase(e)
	}
}

// Get returns the entity currently mapped to key, if any.
func (m *EntityMap[K, Comp]) Get(key K) (Entity, bool) {
	e, ok := m.index[key]
	return e, ok
}

// Entities returns a freshly built snapshot of every currently-mapped
// entity (spec.md §4.5's common entities() view). The order is
// unspecified, matching the plain-map backing.
func (m *EntityMap[K, Comp]) Entities() []Entity {
	out := make([]Entity, 0, len(m.index))
	for _, e := range m.index {
		out = append(out, e)
	}
	return out
}

// Contains reports whether e is currently a member.
func (m *EntityMap[K, Comp]) Contains(e Entity) bool {
	_, ok := m.keys[e.EntityID]
	return ok
}

// Count returns the number of mapped entities.
func (m *EntityMap[K, Comp]) Count() int { return len(m.index) }

// Complete is a no-op: EntityMap has no Added/Changed/Removed frame state
// to swap, unlike EntitySet/EntitySortedSet. Present to satisfy the
// common query-set contract of spec.md §4.5.
func (m *EntityMap[K, Comp]) Complete() {}

// Unsubscribe releases the map's bus subscriptions.
func (m *EntityMap[K, Comp]) Unsubscribe() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
}
