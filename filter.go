package ecs

import "reflect"

// Filter is the query-set filter DSL of spec.md §4.5: a pair of required/
// forbidden bitsets plus optional "either" groups and change-tracking
// classes, all expressed as flag-index bitsets so a query set's dispatch
// handler can test relevance in O(1) without knowing any concrete
// component type. Built with FilterBuilder.
type Filter struct {
	with    *ComponentEnum
	without *ComponentEnum

	withEither    []*ComponentEnum
	withoutEither []*ComponentEnum

	// added/changed/removed hold the flags of types that, besides
	// satisfying with/without, must have just transitioned for the
	// entity to count as matching this frame (spec.md §4.5's
	// Added/Changed/Removed message classes).
	added   *ComponentEnum
	changed *ComponentEnum
	removed *ComponentEnum
}

func (f *Filter) tracksChanges() bool {
	return f.added != nil || f.changed != nil || f.removed != nil
}

// FilterBuilder accumulates filter terms against a specific World, since
// flag indices are allocated per-world.
type FilterBuilder struct {
	world  *World
	filter Filter
}

// NewFilterBuilder starts a filter for w.
func NewFilterBuilder(w *World) *FilterBuilder {
	return &FilterBuilder{world: w}
}

func typeFlag[T any](b *FilterBuilder) uint {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.world.flags.flagFor(t)
}

// With requires T to be present.
func With[T any](b *FilterBuilder) *FilterBuilder {
	if b.filter.with == nil {
		b.filter.with = newComponentEnum()
	}
	b.filter.with.Set(typeFlag[T](b))
	return b
}

// Without forbids T from being present.
func Without[T any](b *FilterBuilder) *FilterBuilder {
	if b.filter.without == nil {
		b.filter.without = newComponentEnum()
	}
	b.filter.without.Set(typeFlag[T](b))
	return b
}

// WithEither requires at least one of A, B to be present.
func WithEither[A, B any](b *FilterBuilder) *FilterBuilder {
	grp := newComponentEnum()
	grp.Set(typeFlag[A](b))
	grp.Set(typeFlag[B](b))
	b.filter.withEither = append(b.filter.withEither, grp)
	return b
}

// WithoutEither requires at least one of A, B to be absent.
func WithoutEither[A, B any](b *FilterBuilder) *FilterBuilder {
	grp := newComponentEnum()
	grp.Set(typeFlag[A](b))
	grp.Set(typeFlag[B](b))
	b.filter.withoutEither = append(b.filter.withoutEither, grp)
	return b
}

// WhenAdded additionally requires T (like With) and restricts membership
// to the frame T was added, per spec.md §4.5.
func WhenAdded[T any](b *FilterBuilder) *FilterBuilder {
	if b.filter.added == nil {
		b.filter.added = newComponentEnum()
	}
	b.filter.added.Set(typeFlag[T](b))
	return With[T](b)
}

// WhenChanged additionally requires T and restricts membership to the
// frame T changed.
func WhenChanged[T any](b *FilterBuilder) *FilterBuilder {
	if b.filter.changed == nil {
		b.filter.changed = newComponentEnum()
	}
	b.filter.changed.Set(typeFlag[T](b))
	return With[T](b)
}

// WhenRemoved restricts membership to the frame T was removed (a pulse
// independent of whether T is otherwise required, since by the time the
// event fires T is already gone).
func WhenRemoved[T any](b *FilterBuilder) *FilterBuilder {
	if b.filter.removed == nil {
		b.filter.removed = newComponentEnum()
	}
	b.filter.removed.Set(typeFlag[T](b))
	return b
}

// Build finalizes the filter.
func (b *FilterBuilder) Build() Filter {
	return b.filter
}
