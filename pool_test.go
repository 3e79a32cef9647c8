package ecs

import "testing"

type Position struct{ X, Y float64 }
type flagTag struct{}

func TestPoolSetGetAndChangedVsAdded(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[Position](w)

	e, err := w.CreateEntity()
	if err != nil {
		t.Fatal(err)
	}

	isNew, err := pool.Set(e, Position{X: 1})
	if err != nil || !isNew {
		t.Fatalf("first Set should report Added, err=%v isNew=%v", err, isNew)
	}
	isNew, err = pool.Set(e, Position{X: 2})
	if err != nil || isNew {
		t.Fatalf("second Set should report Changed, err=%v isNew=%v", err, isNew)
	}
	if got := pool.Get(e); got.X != 2 {
		t.Fatalf("want X=2, got %v", got)
	}
	if !pool.Has(e) {
		t.Fatal("entity should have the component")
	}
}

func TestPoolRemoveSwapPop(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[Position](w)

	e1, _ := w.CreateEntity()
	e2, _ := w.CreateEntity()
	e3, _ := w.CreateEntity()
	pool.Set(e1, Position{X: 1})
	pool.Set(e2, Position{X: 2})
	pool.Set(e3, Position{X: 3})

	pool.Remove(e1)
	if pool.Has(e1) {
		t.Fatal("e1 should no longer have the component")
	}
	if !pool.Has(e2) || !pool.Has(e3) {
		t.Fatal("e2 and e3 should be unaffected by the swap-pop")
	}
	if pool.Get(e2).X != 2 || pool.Get(e3).X != 3 {
		t.Fatal("remaining values should survive the swap-pop intact")
	}
}

func TestPoolSetSameAsAliasesAndRefCounts(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[Position](w)

	e1, _ := w.CreateEntity()
	e2, _ := w.CreateEntity()
	pool.Set(e1, Position{X: 42})

	isNew, err := pool.SetSameAs(e2, e1)
	if err != nil || !isNew {
		t.Fatalf("SetSameAs should succeed and report Added, err=%v", err)
	}
	if pool.Get(e2).X != 42 {
		t.Fatal("aliased entity should read the shared value")
	}

	pool.Remove(e1)
	if !pool.Has(e2) || pool.Get(e2).X != 42 {
		t.Fatal("removing one alias must not affect the other while refcount > 0")
	}
}

func TestPoolSetSameAsRejectsMissingOrForeign(t *testing.T) {
	w1 := NewWorld(Options{MaxEntities: 8})
	defer w1.Close()
	w2 := NewWorld(Options{MaxEntities: 8})
	defer w2.Close()

	pool := poolFor[Position](w1)
	e1, _ := w1.CreateEntity()
	e2, _ := w1.CreateEntity()
	foreign, _ := w2.CreateEntity()

	if _, err := pool.SetSameAs(e2, e1); err == nil {
		t.Fatal("reference entity lacks the component: should error")
	}
	pool.Set(e1, Position{X: 1})
	if _, err := pool.SetSameAs(foreign, e1); err == nil {
		t.Fatal("cross-world SetSameAs should error")
	}
}

func TestPoolFlagTypeSharesSingleSlot(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[flagTag](w)

	e1, _ := w.CreateEntity()
	e2, _ := w.CreateEntity()
	pool.Set(e1, flagTag{})
	pool.Set(e2, flagTag{})

	if pool.MaxComponentCount() != 1 {
		t.Fatalf("flag pool capacity should be 1, got %d", pool.MaxComponentCount())
	}
	if !pool.Has(e1) || !pool.Has(e2) {
		t.Fatal("both entities should carry the flag")
	}

	pool.Remove(e1)
	if !pool.Has(e2) {
		t.Fatal("removing one flag holder must not clear the shared slot for the other")
	}
}

func TestNotifyChangedFiresForInPlaceMutation(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := WhenChanged[Position](fb).Build()
	set := NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	e, _ := w.CreateEntity()
	pool.Set(e, Position{X: 1}) // Added, not Changed, so the set ignores it

	pool.Get(e).X = 99 // in-place mutation bypasses Set, so no event fires yet
	if set.Contains(e) {
		t.Fatal("in-place mutation without NotifyChanged must not be observed yet")
	}

	if err := NotifyChanged[Position](w, e); err != nil {
		t.Fatal(err)
	}
	if !set.Contains(e) {
		t.Fatal("NotifyChanged should make the mutation visible to WhenChanged filters")
	}
}

func TestNotifyChangedErrorsWhenEntityLacksComponent(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	e, _ := w.CreateEntity()

	if err := NotifyChanged[Position](w, e); err == nil {
		t.Fatal("expected an error notifying a change for a component the entity never had")
	}
}
