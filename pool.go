package ecs

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// link tracks, for one dense slot, how many entities alias it and which of
// them is the canonical "owner" used as the ComponentRead authoring entity
// (spec.md §3/§4.2).
type link struct {
	owner    EntityID
	refCount uint16
}

// erasedPool is the type-independent facet of ComponentPool[T] that World
// needs: lifecycle dispatch, cloning, type-level reads, and max-count
// bookkeeping set before the pool exists.
type erasedPool interface {
	has(e EntityID) bool
	remove(e EntityID)
	onCopy(src EntityID, dst Entity) error
	readType(r TypeReader)
	readOne(slot int32, e Entity, r Reader)
	componentType() reflect.Type
	setMaxComponentCount(n uint32) error
	flag() uint

	// Exported-facing, type-erased operations for client packages (the
	// serializer) that only know a component's reflect.Type at runtime.
	Has(e Entity) bool
	SetAny(e Entity, v any) error
	SetSameAsAny(e, ref Entity) error
	GetAny(e Entity) any
	MaxComponentCount() uint32
	SetMaxComponentCountAny(n uint32) error
}

// ComponentPool[T] is the dense, per-world, per-type component store of
// spec.md §4.2: a sparse entity->slot mapping, a dense value array, and a
// parallel dense link array carrying the owner + reference count that
// backs SetSameAs aliasing.
type ComponentPool[T any] struct {
	world *World

	mapping    []int32 // entity_id -> slot index, or -1
	components []T     // dense, valid over [0, lastSlot]
	links      []link  // dense, parallel to components

	lastSlot      int32 // -1 when empty
	maxComponents uint32
	isFlag        bool

	flagIndex uint

	subs [4]Subscription
}

func newComponentPool[T any](w *World) *ComponentPool[T] {
	var zero T
	t := reflect.TypeOf(zero)
	isFlag := t != nil && t.Kind() == reflect.Struct && unsafe.Sizeof(zero) == 0

	max := uint32(w.maxEntities)
	if isFlag {
		max = 1
	}

	p := &ComponentPool[T]{
		world:         w,
		lastSlot:      -1,
		maxComponents: max,
		isFlag:        isFlag,
		flagIndex:     w.flags.flagFor(reflect.TypeOf((*T)(nil)).Elem()),
	}

	p.subs[0] = Subscribe(w.publisher, func(m EntityDisposed) { p.remove(m.Entity.EntityID) })
	p.subs[1] = Subscribe(w.publisher, func(m EntityCopy) {
		if err := p.onCopy(m.Src.EntityID, m.Dst); err != nil && m.Err != nil && *m.Err == nil {
			*m.Err = err
		}
	})
	p.subs[2] = Subscribe(w.publisher, func(m ComponentTypeRead) {
		var sample T
		m.Reader.OnReadType(sample, p.maxComponents)
	})
	p.subs[3] = Subscribe(w.publisher, func(m ComponentRead) {
		slot := p.slotOf(m.Entity.EntityID)
		if slot < 0 {
			return
		}
		p.readOne(slot, m.Entity, m.Reader)
	})

	return p
}

func (p *ComponentPool[T]) componentType() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }
func (p *ComponentPool[T]) flag() uint                   { return p.flagIndex }

func (p *ComponentPool[T]) slotOf(e EntityID) int32 {
	if int(e) >= len(p.mapping) {
		return -1
	}
	return p.mapping[e]
}

// Has reports whether e currently holds this component type.
func (p *ComponentPool[T]) Has(e Entity) bool { return p.has(e.EntityID) }

func (p *ComponentPool[T]) has(e EntityID) bool {
	return p.slotOf(e) >= 0
}

func (p *ComponentPool[T]) growMapping(upTo EntityID) {
	if int(upTo) < len(p.mapping) {
		return
	}
	old := len(p.mapping)
	p.mapping = extendSlice(p.mapping, int(upTo)-old+1)
	for i := old; i < len(p.mapping); i++ {
		p.mapping[i] = -1
	}
}

// Set attaches or overwrites T on e. Returns true if this created a new
// binding (Added), false if it overwrote an existing one (Changed).
func (p *ComponentPool[T]) Set(e Entity, v T) (isNew bool, err error) {
	if err := p.world.checkHandle(e, false); err != nil {
		return false, err
	}
	p.growMapping(e.EntityID)

	if existing := p.mapping[e.EntityID]; existing >= 0 {
		p.components[existing] = v
		p.publishChanged(e)
		return false, nil
	}

	if p.isFlag && p.lastSlot == 0 {
		p.links[0].refCount++
		p.mapping[e.EntityID] = 0
		p.world.setComponentFlag(e.EntityID, p.flagIndex)
		p.publishAdded(e)
		return true, nil
	}

	if uint32(p.lastSlot+1) >= p.maxComponents {
		return false, errors.Wrapf(ErrMaxComponents, "component %s on entity %v", p.componentType(), e)
	}

	slot := p.lastSlot + 1
	p.components = extendSlice(p.components, 1)
	p.links = extendSlice(p.links, 1)
	p.components[slot] = v
	p.links[slot] = link{owner: e.EntityID, refCount: 1}
	p.lastSlot = slot
	p.mapping[e.EntityID] = slot

	p.world.setComponentFlag(e.EntityID, p.flagIndex)
	p.publishAdded(e)
	return true, nil
}

func (p *ComponentPool[T]) publishAdded(e Entity) {
	Publish(p.world.publisher, EntityComponentAdded[T]{Entity: e})
	Publish(p.world.publisher, componentFlagEvent{Entity: e, Flag: p.flagIndex, Kind: flagAdded})
}

func (p *ComponentPool[T]) publishChanged(e Entity) {
	Publish(p.world.publisher, EntityComponentChanged[T]{Entity: e})
	Publish(p.world.publisher, componentFlagEvent{Entity: e, Flag: p.flagIndex, Kind: flagChanged})
}

// NotifyChanged publishes EntityComponentChanged[T] for e, for callers
// that mutated the value behind a pool's Get in place rather than through
// Set (spec.md §7: "NotifyChanged when the entity lacks T" is this
// function's one error case). WhenChanged query sets and
// EntitySortedSet's dirty-tracking both key off this message, so an
// in-place mutation that skips it is invisible to them.
func NotifyChanged[T any](w *World, e Entity) error {
	if err := w.checkHandle(e, false); err != nil {
		return err
	}
	p := poolFor[T](w)
	if !p.has(e.EntityID) {
		return errors.Wrapf(ErrMissingComponent, "NotifyChanged %s on entity %v", p.componentType(), e)
	}
	p.publishChanged(e)
	return nil
}

func (p *ComponentPool[T]) publishRemoved(e Entity) {
	Publish(p.world.publisher, EntityComponentRemoved[T]{Entity: e})
	Publish(p.world.publisher, componentFlagEvent{Entity: e, Flag: p.flagIndex, Kind: flagRemoved})
}

// SetSameAs makes e alias ref's slot, incrementing its reference count
// (spec.md §4.2). ref must already hold T and must be in the same world.
func (p *ComponentPool[T]) SetSameAs(e, ref Entity) (isNew bool, err error) {
	if e.WorldID != 0 && ref.WorldID != 0 && e.WorldID != ref.WorldID {
		return false, errors.Wrapf(ErrForeignEntity, "SetSameAs(%v, %v)", e, ref)
	}
	if err := p.world.checkHandle(e, false); err != nil {
		return false, err
	}
	if err := p.world.checkHandle(ref, false); err != nil {
		return false, err
	}
	refSlot := p.slotOf(ref.EntityID)
	if refSlot < 0 {
		return false, errors.Wrapf(ErrMissingComponent, "SetSameAs reference %v lacks %s", ref, p.componentType())
	}

	p.growMapping(e.EntityID)
	current := p.mapping[e.EntityID]
	if current == refSlot {
		return false, nil
	}
	hadOne := current >= 0
	if hadOne {
		p.removeFromSlot(e.EntityID, current)
		// removeFromSlot may have swap-popped refSlot itself when it was
		// the high-water slot; re-resolve it before aliasing.
		refSlot = p.slotOf(ref.EntityID)
	}

	p.links[refSlot].refCount++
	p.mapping[e.EntityID] = refSlot
	p.world.setComponentFlag(e.EntityID, p.flagIndex)
	if hadOne {
		p.publishChanged(e)
	} else {
		p.publishAdded(e)
	}
	return true, nil
}

// Remove detaches T from e, per the swap-pop/ref-count contract of
// spec.md §4.2.
func (p *ComponentPool[T]) Remove(e Entity) error {
	if err := p.world.checkHandle(e, false); err != nil {
		return err
	}
	p.remove(e.EntityID)
	return nil
}

func (p *ComponentPool[T]) remove(e EntityID) {
	slot := p.slotOf(e)
	if slot < 0 {
		return
	}
	owner := p.entityHandle(e)
	// Clear the flag first so query sets reevaluating on the Removed event
	// already see T as gone; the slot itself is dropped after publishing.
	p.world.clearComponentFlag(e, p.flagIndex)
	p.publishRemoved(owner)
	p.removeFromSlot(e, slot)
}

// removeFromSlot implements the swap-pop/ref-count fixup of spec.md §4.2,
// without publishing Removed (callers that need the message publish it
// before calling this, since SetSameAs's internal re-pointing must NOT
// publish Removed for the entity being moved).
func (p *ComponentPool[T]) removeFromSlot(e EntityID, slot int32) {
	p.mapping[e] = -1
	l := &p.links[slot]
	l.refCount--
	if l.refCount > 0 {
		if l.owner == e {
			// reassign owner to another holder of this slot.
			for id, s := range p.mapping {
				if s == slot && EntityID(id) != e {
					l.owner = EntityID(id)
					break
				}
			}
		}
		return
	}

	// last holder gone: swap-pop the high-water slot into this one.
	last := p.lastSlot
	if slot != last {
		movedLink := p.links[last]
		p.components[slot] = p.components[last]
		p.links[slot] = movedLink

		if movedLink.refCount == 1 {
			p.mapping[movedLink.owner] = slot
		} else {
			for id, s := range p.mapping {
				if s == last {
					p.mapping[id] = slot
				}
			}
		}
	}
	var zero T
	p.components[last] = zero
	p.components = p.components[:last]
	p.links = p.links[:last]
	p.lastSlot--
}

// Get returns a pointer to the live component for e. Undefined if
// Has(e) is false, per spec.md §4.2.
func (p *ComponentPool[T]) Get(e Entity) *T {
	slot := p.slotOf(e.EntityID)
	return &p.components[slot]
}

// GetAll returns a view over every live slot, [0, lastSlot].
func (p *ComponentPool[T]) GetAll() []T {
	if p.lastSlot < 0 {
		return nil
	}
	return p.components[:p.lastSlot+1]
}

// MaxComponentCount reports the pool's current capacity.
func (p *ComponentPool[T]) MaxComponentCount() uint32 { return p.maxComponents }

// setMaxComponentCount replaces the capacity newComponentPool chose; it
// takes effect only when called before anything has been Set, and has no
// effect on a pool that already holds data. n must be positive and, for a
// flag type, is ignored (flag pools are always capacity 1).
func (p *ComponentPool[T]) setMaxComponentCount(n uint32) error {
	if n == 0 {
		return errors.New("ecs: max component count must be positive")
	}
	if p.isFlag {
		return nil
	}
	if p.lastSlot >= 0 {
		return nil // pool already has data; no effect, per spec.md §4.1.
	}
	cap := n
	if uint32(p.world.maxEntities) < cap {
		cap = uint32(p.world.maxEntities)
	}
	p.maxComponents = cap
	return nil
}

func (p *ComponentPool[T]) onCopy(src EntityID, dst Entity) error {
	if !p.has(src) {
		return nil
	}
	srcHandle := p.entityHandle(src)
	v := *p.Get(srcHandle)
	_, err := p.Set(dst, v)
	return err
}

func (p *ComponentPool[T]) readType(r TypeReader) {
	var sample T
	r.OnReadType(sample, p.maxComponents)
}

func (p *ComponentPool[T]) readOne(slot int32, e Entity, r Reader) {
	owner := p.entityHandle(p.links[slot].owner)
	r.OnRead(&p.components[slot], owner)
}

// SetAny is the type-erased counterpart of Set, used by clients (the
// serializer) that resolved this pool from a reflect.Type rather than a
// compile-time T.
func (p *ComponentPool[T]) SetAny(e Entity, v any) error {
	val, ok := v.(T)
	if !ok {
		return errors.Errorf("ecs: value %T is not assignable to %s", v, p.componentType())
	}
	_, err := p.Set(e, val)
	return err
}

// SetSameAsAny is the type-erased counterpart of SetSameAs.
func (p *ComponentPool[T]) SetSameAsAny(e, ref Entity) error {
	_, err := p.SetSameAs(e, ref)
	return err
}

// SetMaxComponentCountAny is the type-erased counterpart of
// SetMaxComponentCount.
func (p *ComponentPool[T]) SetMaxComponentCountAny(n uint32) error {
	return p.setMaxComponentCount(n)
}

// GetAny is the type-erased counterpart of Get; returns nil if e lacks T.
func (p *ComponentPool[T]) GetAny(e Entity) any {
	if !p.Has(e) {
		return nil
	}
	return *p.Get(e)
}

func (p *ComponentPool[T]) entityHandle(id EntityID) Entity {
	v := Version(0)
	if int(id) < len(p.world.infos) {
		v = p.world.infos[id].version
	}
	return Entity{WorldID: p.world.id, EntityID: id, Version: v}
}
