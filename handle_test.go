package ecs

import "testing"

func TestEntityDefaultIsUnbound(t *testing.T) {
	if !Default.IsDefault() {
		t.Fatal("Default should report IsDefault")
	}
	if Default.World() != nil {
		t.Fatal("Default should not resolve to a world")
	}
	if Default.IsAlive() {
		t.Fatal("Default must never be alive")
	}
}

func TestEntityWorldResolvesAndIsAlive(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()

	e, err := w.CreateEntity()
	if err != nil {
		t.Fatal(err)
	}
	if e.World() != w {
		t.Fatal("handle should resolve back to its owning world")
	}
	if !e.IsAlive() {
		t.Fatal("freshly created entity should be alive")
	}

	w.DisposeEntity(e)
	if e.IsAlive() {
		t.Fatal("disposed entity should report not alive")
	}
}

func TestVersionAfterSkipsSentinel(t *testing.T) {
	if got := versionAfter(-3); got != -2 {
		t.Fatalf("want -2, got %d", got)
	}
	if got := versionAfter(-2); got != 0 {
		t.Fatalf("-1 sentinel should be skipped, got %d", got)
	}
	if got := versionAfter(5); got != 6 {
		t.Fatalf("want 6, got %d", got)
	}
}
