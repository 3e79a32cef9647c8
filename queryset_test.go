package ecs

import "testing"

type Velocity struct{ DX, DY float64 }

func TestEntitySetTracksStructuralMembership(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := With[Position](fb).Build()
	set := NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	e1, _ := w.CreateEntity()
	if set.Contains(e1) {
		t.Fatal("should not match before the component is added")
	}

	posPool.Set(e1, Position{})
	if !set.Contains(e1) || set.Count() != 1 {
		t.Fatalf("should match once Position is added, count=%d", set.Count())
	}

	posPool.Remove(e1)
	if set.Contains(e1) {
		t.Fatal("should drop out once Position is removed")
	}
}

func TestEntitySetDisposalForceRemoves(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := With[Position](fb).Build()
	set := NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	e, _ := w.CreateEntity()
	posPool.Set(e, Position{})
	w.DisposeEntity(e)

	if set.Contains(e) || set.Count() != 0 {
		t.Fatal("disposed entity must be gone from the set")
	}
}

func TestEntitySetWithoutExcludes(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)
	velPool := poolFor[Velocity](w)

	fb := NewFilterBuilder(w)
	filter := Without[Velocity](With[Position](fb)).Build()
	set := NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	e, _ := w.CreateEntity()
	posPool.Set(e, Position{})
	if !set.Contains(e) {
		t.Fatal("should match: has Position, lacks Velocity")
	}

	velPool.Set(e, Velocity{})
	if set.Contains(e) {
		t.Fatal("should no longer match once Velocity is added")
	}
}

func TestEntitySetWhenAddedPulseAndComplete(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := WhenAdded[Position](fb).Build()
	set := NewEntitySet(w, filter, false)
	defer set.Unsubscribe()

	e, _ := w.CreateEntity()
	posPool.Set(e, Position{})
	if !set.Contains(e) {
		t.Fatal("should be touched in the frame Position was added")
	}

	set.Complete()
	if !set.Contains(e) {
		t.Fatal("Complete should keep members touched since the previous Complete")
	}

	set.Complete()
	if set.Contains(e) {
		t.Fatal("Complete should drop members not re-touched this frame")
	}
}

func TestEntityMapKeysByComponentValue(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := With[Position](fb).Build()
	m := NewEntityMap[float64, Position](w, filter, func(p Position) float64 { return p.X })
	defer m.Unsubscribe()

	e, _ := w.CreateEntity()
	posPool.Set(e, Position{X: 5})

	got, ok := m.Get(5)
	if !ok || got != e {
		t.Fatalf("expected entity mapped under key 5, ok=%v got=%v", ok, got)
	}
	if !m.Contains(e) || m.Count() != 1 {
		t.Fatalf("expected Contains/Count to agree, count=%d", m.Count())
	}
	if entities := m.Entities(); len(entities) != 1 || entities[0] != e {
		t.Fatalf("expected Entities() to snapshot the single member, got %v", entities)
	}
	m.Complete() // no-op for EntityMap; must not panic or drop members
	if !m.Contains(e) {
		t.Fatal("Complete must not evict EntityMap members")
	}
}

func TestEntityMultiMapGroupsByKey(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	posPool := poolFor[Position](w)

	fb := NewFilterBuilder(w)
	filter := With[Position](fb).Build()
	mm := NewEntityMultiMap[float64, Position](w, filter, func(p Position) float64 { return p.X })
	defer mm.Unsubscribe()

	e1, _ := w.CreateEntity()
	e2, _ := w.CreateEntity()
	posPool.Set(e1, Position{X: 1})
	posPool.Set(e2, Position{X: 1})

	bucket := mm.Get(1)
	if len(bucket) != 2 {
		t.Fatalf("want 2 entities under key 1, got %d", len(bucket))
	}
	if !mm.Contains(e1) || !mm.Contains(e2) {
		t.Fatal("expected both entities to be Contains-reachable")
	}
	if entities := mm.Entities(); len(entities) != 2 {
		t.Fatalf("expected Entities() to snapshot both members, got %v", entities)
	}
	mm.Complete() // no-op for EntityMultiMap; must not panic or drop members
	if mm.Count() != 1 {
		t.Fatalf("Count() tracks distinct keys, want 1, got %d", mm.Count())
	}
}
