package ecs

import "testing"

func TestWorldCreateDisposeLifecycleMessages(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()

	var events []string
	Subscribe(w.publisher, func(m EntityCreated) { events = append(events, "created") })
	Subscribe(w.publisher, func(m EntityDisposing) { events = append(events, "disposing") })
	Subscribe(w.publisher, func(m EntityDisposed) { events = append(events, "disposed") })

	e, err := w.CreateEntity()
	if err != nil {
		t.Fatal(err)
	}
	w.DisposeEntity(e)

	want := []string{"created", "disposing", "disposed"}
	if len(events) != len(want) {
		t.Fatalf("got %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
}

func TestWorldDisposeIsIdempotent(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	e, _ := w.CreateEntity()
	w.DisposeEntity(e)
	w.DisposeEntity(e) // must be a silent no-op, not a panic
}

func TestWorldSlotReuseBumpsVersion(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	e1, _ := w.CreateEntity()
	w.DisposeEntity(e1)
	e2, _ := w.CreateEntity()

	if e1.EntityID != e2.EntityID {
		t.Skip("free list did not reuse the slot this run")
	}
	if e1.Version == e2.Version {
		t.Fatal("reused slot must carry a new version")
	}
	if e1.IsAlive() {
		t.Fatal("the stale handle must no longer be alive")
	}
}

func TestWorldEnableDisable(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	e, _ := w.CreateEntity()
	if !w.IsEnabled(e) {
		t.Fatal("entities are enabled by default")
	}
	if err := w.Disable(e); err != nil {
		t.Fatal(err)
	}
	if w.IsEnabled(e) {
		t.Fatal("should be disabled now")
	}
	if err := w.Enable(e); err != nil {
		t.Fatal(err)
	}
	if !w.IsEnabled(e) {
		t.Fatal("should be enabled again")
	}
}

func TestWorldSetParentCascadesDispose(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	parent, _ := w.CreateEntity()
	child, _ := w.CreateEntity()
	if err := w.SetParent(child, parent); err != nil {
		t.Fatal(err)
	}

	w.DisposeEntity(parent)
	if child.IsAlive() {
		t.Fatal("disposing the parent should cascade to the child")
	}
}

func TestWorldEntitySingletonConvenience(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()

	if err := Set(w, Position{X: 7}); err != nil {
		t.Fatal(err)
	}
	if !Has[Position](w) {
		t.Fatal("world entity should carry the component after Set")
	}
	if got := Get[Position](w); got.X != 7 {
		t.Fatalf("want 7, got %v", got.X)
	}
	Remove[Position](w)
	if Has[Position](w) {
		t.Fatal("component should be gone after Remove")
	}
}

func TestWorldCopyTo(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[Position](w)

	src, _ := w.CreateEntity()
	dst, _ := w.CreateEntity()
	pool.Set(src, Position{X: 9, Y: 1})

	if err := w.CopyTo(src, dst); err != nil {
		t.Fatal(err)
	}
	if !pool.Has(dst) || pool.Get(dst).X != 9 {
		t.Fatal("CopyTo should shallow-copy the component onto dst")
	}
}
