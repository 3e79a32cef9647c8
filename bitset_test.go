package ecs

import (
	"reflect"
	"testing"
)

func TestComponentEnumEnabledGate(t *testing.T) {
	c := newComponentEnum()
	f := &Filter{}
	if c.matches(f) {
		t.Fatal("a freshly-built enum is not enabled and should match nothing")
	}
	c.Set(enabledFlag)
	if !c.matches(f) {
		t.Fatal("an enabled enum should satisfy an empty filter")
	}
}

func TestComponentEnumWithWithout(t *testing.T) {
	c := newComponentEnum()
	c.Set(enabledFlag)
	c.Set(3)

	with := newComponentEnum()
	with.Set(3)
	without := newComponentEnum()
	without.Set(4)
	f := &Filter{with: with, without: without}

	if !c.matches(f) {
		t.Fatal("entity has the required flag and lacks the forbidden one")
	}

	c.Set(4)
	if c.matches(f) {
		t.Fatal("entity now holds the forbidden flag and should not match")
	}
}

func TestComponentEnumWithEitherAndWithoutEither(t *testing.T) {
	c := newComponentEnum()
	c.Set(enabledFlag)
	c.Set(1)

	grpA := newComponentEnum()
	grpA.Set(1)
	grpA.Set(2)
	f := &Filter{withEither: []*ComponentEnum{grpA}}
	if !c.matches(f) {
		t.Fatal("entity holds one of the either-group flags")
	}

	grpB := newComponentEnum()
	grpB.Set(1)
	grpB.Set(2)
	c.Set(2)
	f2 := &Filter{withoutEither: []*ComponentEnum{grpB}}
	if c.matches(f2) {
		t.Fatal("entity holds every flag in the without-either group: should fail")
	}

	c.Clear(2)
	if !c.matches(f2) {
		t.Fatal("entity is now missing one of the group's flags: should pass")
	}
}

func TestFlagRegistryIsStableAndStartsAfterEnabled(t *testing.T) {
	r := newFlagRegistry()
	type a struct{}
	type b struct{}

	ta := reflect.TypeOf(a{})
	tb := reflect.TypeOf(b{})

	fa := r.flagFor(ta)
	fb := r.flagFor(tb)
	if fa == enabledFlag || fb == enabledFlag {
		t.Fatal("user flags must not collide with the reserved enabled flag")
	}
	if r.flagFor(ta) != fa {
		t.Fatal("flagFor must be stable across calls for the same type")
	}
}
