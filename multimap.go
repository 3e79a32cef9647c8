package ecs

// EntityMultiMap is EntityMap's non-unique counterpart: many entities may
// share a key (spec.md §4.5). Backed by a plain map of slices for the same
// reason EntityMap is: no pack library fits an unbounded multi-index
// better than the standard library (see DESIGN.md).
type EntityMultiMap[K comparable, Comp any] struct {
	world  *World
	filter Filter
	pool   *ComponentPool[Comp]
	keyFn  func(Comp) K

	index map[K][]Entity
	pos   map[EntityID]int // index within index[key]
	keys  map[EntityID]K

	subs []Subscription
}

// NewEntityMultiMap builds a multimap keyed by keyFn(Comp) over entities
// matching filter and holding Comp.
func NewEntityMultiMap[K comparable, Comp any](w *World, filter Filter, keyFn func(Comp) K) *EntityMultiMap[K, Comp] {
	m := &EntityMultiMap[K, Comp]{
		world:  w,
		filter: filter,
		pool:   poolFor[Comp](w),
		keyFn:  keyFn,
		index:  make(map[K][]Entity),
		pos:    make(map[EntityID]int),
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

func (m *EntityMultiMap[K, Comp]) subscribe() {
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

func (m *EntityMultiMap[K, Comp]) insert(e Entity) {
	key := m.keyFn(*m.pool.Get(e))
	if old, ok := m.keys[e.EntityID]; ok {
		if old == key {
			return
		}
		m.erase(e)
	}
	bucket := m.index[key]
	m.pos[e.EntityID] = len(bucket)
	m.index[key] = append(bucket, e)
	m.keys[e.EntityID] = key
}

func (m *EntityMultiMap[K, Comp]) erase(e Entity) {
	key, ok := m.keys[e.EntityID]
	if !ok {
		return
	}
	bucket := m.index[key]
	i := m.pos[e.EntityID]
	last := len(bucket) - 1
	if i != last {
		bucket[i] = bucket[last]
		m.pos[bucket[i].EntityID] = i
	}
	bucket = bucket[:last]
	if len(bucket) == 0 {
		delete(m.index, key)
	} else {
		m.index[key] = bucket
	}
	delete(m.pos, e.EntityID)
	delete(m.keys, e.EntityID)
}

func (m *EntityMultiMap[K, Comp]) reevaluate(e Entity) {
	matches := m.world.infos[e.EntityID].components.matches(&m.filter) && m.pool.Has(e)
	_, member := m.keys[e.EntityID]
	switch {
	case matches:
		m.insert(e)
	case !matches && member:
		m.erase(e)
	}
}

// Get returns the entities currently mapped to key.
func (m *EntityMultiMap[K, Comp]) Get(key K) []Entity { return m.index[key] }

// Entities returns a freshly built snapshot of every member entity across
// every bucket (spec.md §4.5's common entities() view). The order is
// unspecified, matching the plain-map backing.
func (m *EntityMultiMap[K, Comp]) Entities() []Entity {
	out := make([]Entity, 0, len(m.keys))
	for _, bucket := range m.index {
		out = append(out, bucket...)
	}
	return out
}

// Contains reports whether e is currently a member of any bucket.
func (m *EntityMultiMap[K, Comp]) Contains(e Entity) bool {
	_, ok := m.keys[e.EntityID]
	return ok
}

// Count returns the number of distinct keys currently populated.
func (m *EntityMultiMap[K, Comp]) Count() int { return len(m.index) }

// Complete is a no-op: EntityMultiMap has no Added/Changed/Removed frame
// state to swap. Present to satisfy the common query-set contract of
// spec.md §4.5.
func (m *EntityMultiMap[K, Comp]) Complete() {}

// Unsubscribe releases the multimap's bus subscriptions.
func (m *EntityMultiMap[K, Comp]) Unsubscribe() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
}
