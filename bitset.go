package ecs

import (
	"reflect"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// bitsetIndex is the plain growable bitset used for structural indices
// that are not the component-membership enum itself (currently: the
// per-entity "parents" set of spec.md §3's EntityInfo).
type bitsetIndex = bitset.BitSet

func newBitsetIndex() *bitsetIndex {
	return bitset.New(0)
}

// enabledFlag is the reserved index for the "enabled" bit inside every
// world's ComponentEnum, per spec.md §4.3.
const enabledFlag = 0

// ComponentEnum is the per-entity bitset of owned component flags plus the
// reserved "enabled" flag (spec.md §3, §4.3). It grows lazily as flag
// indices are set; there is no fixed width ceiling, unlike the teacher's
// fixed-size bitmask256/maskType.
type ComponentEnum struct {
	bits *bitset.BitSet
}

func newComponentEnum() *ComponentEnum {
	return &ComponentEnum{bits: bitset.New(8)}
}

// Get reports whether flag i is set.
func (c *ComponentEnum) Get(i uint) bool {
	if c.bits == nil {
		return false
	}
	return c.bits.Test(i)
}

// Set sets flag i.
func (c *ComponentEnum) Set(i uint) {
	c.bits.Set(i)
}

// Clear clears flag i.
func (c *ComponentEnum) Clear(i uint) {
	c.bits.Clear(i)
}

// And intersects this enum in place with other.
func (c *ComponentEnum) And(other *ComponentEnum) {
	c.bits.InPlaceIntersection(other.bits)
}

// Or unions this enum in place with other.
func (c *ComponentEnum) Or(other *ComponentEnum) {
	c.bits.InPlaceUnion(other.bits)
}

// Xor symmetric-differences this enum in place with other.
func (c *ComponentEnum) Xor(other *ComponentEnum) {
	c.bits.InPlaceSymmetricDifference(other.bits)
}

// Clone returns an independent copy.
func (c *ComponentEnum) Clone() *ComponentEnum {
	return &ComponentEnum{bits: c.bits.Clone()}
}

// IsEnabled reports the reserved enabled bit.
func (c *ComponentEnum) IsEnabled() bool {
	return c.Get(enabledFlag)
}

// matches implements the filter DSL predicate from spec.md §4.5:
//
//	enabled && (components & with) == with && (components & without).is_empty
//	&& every with_either group has >=1 bit in components
//	&& every without_either group has >=1 bit missing from components
func (c *ComponentEnum) matches(f *Filter) bool {
	if !c.IsEnabled() {
		return false
	}
	if f.with != nil && !c.bits.IsSuperSet(f.with.bits) {
		return false
	}
	if f.without != nil && c.bits.IntersectionCardinality(f.without.bits) != 0 {
		return false
	}
	for _, grp := range f.withEither {
		if c.bits.IntersectionCardinality(grp.bits) == 0 {
			return false
		}
	}
	for _, grp := range f.withoutEither {
		if c.bits.IsSuperSet(grp.bits) {
			// every bit of the group is present, so none is "missing" -> fails
			return false
		}
	}
	return true
}

// flagRegistry allocates process-monotonic-per-world flag indices for
// (world, componentType) pairs. One instance lives on each World rather
// than in a hidden package-global map (spec.md §9 flags the latter as
// needing re-architecture). Index 0 is reserved for "enabled" and handed
// out up front.
type flagRegistry struct {
	mu   sync.Mutex
	next uint
	ids  map[reflect.Type]uint
}

func newFlagRegistry() *flagRegistry {
	return &flagRegistry{next: enabledFlag + 1, ids: make(map[reflect.Type]uint)}
}

// flagFor returns the flag index for t, allocating a new one if needed.
func (r *flagRegistry) flagFor(t reflect.Type) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[t]; ok {
		return id
	}
	id := r.next
	r.next++
	r.ids[t] = id
	return id
}
