package ecs

import "github.com/RoaringBitmap/roaring/v2"

func enumHasFlag(e *ComponentEnum, flag uint) bool {
	return e != nil && e.Get(flag)
}

// relevantFlag reports whether a transition on flag could possibly change
// this filter's verdict for any entity.
func (f *Filter) relevantFlag(flag uint) bool {
	if enumHasFlag(f.with, flag) || enumHasFlag(f.without, flag) {
		return true
	}
	if enumHasFlag(f.added, flag) || enumHasFlag(f.changed, flag) || enumHasFlag(f.removed, flag) {
		return true
	}
	for _, g := range f.withEither {
		if enumHasFlag(g, flag) {
			return true
		}
	}
	for _, g := range f.withoutEither {
		if enumHasFlag(g, flag) {
			return true
		}
	}
	return false
}

// EntitySet is an ordered, incrementally-maintained collection of entities
// matching a Filter (spec.md §4.5). The non-stable variant swap-pops on
// removal; the stable variant does a positional remove that preserves
// relative order of the remaining entries.
type EntitySet struct {
	world  *World
	filter Filter
	stable bool

	dense      []Entity
	pos        []int32 // entity_id -> index in dense, or -1
	membership *roaring.Bitmap

	touched map[EntityID]bool // entities (re-)matched since the last Complete

	subs []Subscription
}

// NewEntitySet builds and seeds an EntitySet over w. stable selects the
// positional-remove variant; non-stable (false) swap-pops.
func NewEntitySet(w *World, filter Filter, stable bool) *EntitySet {
	s := &EntitySet{
		world:      w,
		filter:     filter,
		stable:     stable,
		membership: roaring.New(),
	}
	if filter.tracksChanges() {
		s.touched = make(map[EntityID]bool)
	}
	s.subscribe()

	if !filter.tracksChanges() {
		for _, e := range w.AliveEntities() {
			if w.infos[e.EntityID].components.matches(&s.filter) {
				s.add(e)
			}
		}
	}
	return s
}

func (s *EntitySet) subscribe() {
	s.subs = append(s.subs,
		Subscribe(s.world.publisher, func(m EntityCreated) { s.onStructural(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityDisposed) { s.forceRemove(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityEnabled) { s.onStructural(m.Entity) }),
		Subscribe(s.world.publisher, func(m EntityDisabled) { s.onStructural(m.Entity) }),
		Subscribe(s.world.publisher, func(m componentFlagEvent) { s.onFlag(m) }),
	)
}

func (s *EntitySet) growPos(upTo EntityID) {
	if int(upTo) < len(s.pos) {
		return
	}
	old := len(s.pos)
	s.pos = extendSlice(s.pos, int(upTo)-old+1)
	for i := old; i < len(s.pos); i++ {
		s.pos[i] = -1
	}
}

func (s *EntitySet) posOf(e EntityID) int32 {
	if int(e) >= len(s.pos) {
		return -1
	}
	return s.pos[e]
}

// Contains reports whether e is currently a member.
func (s *EntitySet) Contains(e Entity) bool {
	return s.membership.Contains(uint32(e.EntityID))
}

// Count returns the number of matching entities.
func (s *EntitySet) Count() int { return len(s.dense) }

// Entities returns a stable snapshot view; it must not be mutated, and
// callers must treat it as invalid across the next mutating world call.
func (s *EntitySet) Entities() []Entity { return s.dense }

func (s *EntitySet) add(e Entity) {
	if s.Contains(e) {
		return
	}
	s.growPos(e.EntityID)
	s.pos[e.EntityID] = int32(len(s.dense))
	s.dense = append(s.dense, e)
	s.membership.Add(uint32(e.EntityID))
}

func (s *EntitySet) removeAt(i int32) {
	e := s.dense[i]
	s.membership.Remove(uint32(e.EntityID))
	last := int32(len(s.dense) - 1)

	if s.stable {
		copy(s.dense[i:], s.dense[i+1:])
		s.dense = s.dense[:last]
		for j := i; j < last; j++ {
			s.pos[s.dense[j].EntityID] = j
		}
	} else {
		if i != last {
			s.dense[i] = s.dense[last]
			s.pos[s.dense[i].EntityID] = i
		}
		s.dense = s.dense[:last]
	}
	s.pos[e.EntityID] = -1
}

func (s *EntitySet) forceRemove(e Entity) {
	if i := s.posOf(e.EntityID); i >= 0 {
		s.removeAt(i)
	}
	if s.touched != nil {
		delete(s.touched, e.EntityID)
	}
}

func (s *EntitySet) baseMatches(e Entity) bool {
	return s.world.infos[e.EntityID].components.matches(&s.filter)
}

// onStructural reevaluates plain (non-change-tracking) membership in
// response to entity-level lifecycle transitions.
func (s *EntitySet) onStructural(e Entity) {
	if s.filter.tracksChanges() {
		return
	}
	matches := s.baseMatches(e)
	member := s.Contains(e)
	switch {
	case matches && !member:
		s.add(e)
	case !matches && member:
		if i := s.posOf(e.EntityID); i >= 0 {
			s.removeAt(i)
		}
	}
}

func (s *EntitySet) onFlag(m componentFlagEvent) {
	if !s.filter.relevantFlag(m.Flag) {
		return
	}
	if !s.filter.tracksChanges() {
		s.onStructural(m.Entity)
		return
	}

	var inClass bool
	switch m.Kind {
	case flagAdded:
		inClass = enumHasFlag(s.filter.added, m.Flag)
	case flagChanged:
		inClass = enumHasFlag(s.filter.changed, m.Flag)
	case flagRemoved:
		inClass = enumHasFlag(s.filter.removed, m.Flag)
	}
	if !inClass {
		return
	}

	// WhenRemoved does not add T to the with-set (T is by definition
	// already gone by the time this fires), so baseMatches still correctly
	// evaluates every other with/without/either constraint on the filter.
	if !s.baseMatches(m.Entity) {
		return
	}

	s.touched[m.Entity.EntityID] = true
	s.add(m.Entity)
}

// Complete swaps the change-tracking frame: members that were not
// (re-)touched since the previous Complete are dropped. No-op for filters
// without Added/Changed/Removed classes.
func (s *EntitySet) Complete() {
	if !s.filter.tracksChanges() {
		return
	}
	for i := 0; i < len(s.dense); {
		e := s.dense[i]
		if s.touched[e.EntityID] {
			i++
			continue
		}
		s.removeAt(int32(i))
	}
	clear(s.touched)
}

// Unsubscribe releases the set's bus subscriptions (Disposable, per
// spec.md §4.5).
func (s *EntitySet) Unsubscribe() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
}
