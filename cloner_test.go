package ecs

import "testing"

type taggedBuffer struct {
	data  []byte
	clones int
}

type bufferCloner struct{}

func (bufferCloner) Clone(src taggedBuffer) taggedBuffer {
	cp := make([]byte, len(src.data))
	copy(cp, src.data)
	return taggedBuffer{data: cp, clones: src.clones + 1}
}

func TestRegisterClonerOverridesDefaultCopy(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[taggedBuffer](w)

	sub := RegisterCloner[taggedBuffer](w, bufferCloner{})
	defer sub.Unsubscribe()

	src, _ := w.CreateEntity()
	dst, _ := w.CreateEntity()
	pool.Set(src, taggedBuffer{data: []byte("hello")})

	if err := w.CopyTo(src, dst); err != nil {
		t.Fatal(err)
	}

	got := pool.Get(dst)
	if got.clones != 1 {
		t.Fatalf("expected the cloner to run, got clones=%d", got.clones)
	}
	got.data[0] = 'X'
	if pool.Get(src).data[0] == 'X' {
		t.Fatal("cloned buffer must not alias the source's backing array")
	}
}

type panickyCloner struct{}

func (panickyCloner) Clone(src taggedBuffer) taggedBuffer {
	panic("boom")
}

func TestCopyToDisposesDestinationWhenClonerPanics(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[taggedBuffer](w)

	sub := RegisterCloner[taggedBuffer](w, panickyCloner{})
	defer sub.Unsubscribe()

	src, _ := w.CreateEntity()
	dst, _ := w.CreateEntity()
	pool.Set(src, taggedBuffer{data: []byte("hello")})

	err := w.CopyTo(src, dst)
	if err == nil {
		t.Fatal("expected CopyTo to report the panic as an error")
	}
	if dst.IsAlive() {
		t.Fatal("destination entity must be disposed after a cloning failure")
	}
}

func TestCopyToDisposesDestinationWhenSetFails(t *testing.T) {
	w := NewWorld(Options{MaxEntities: 8})
	defer w.Close()
	pool := poolFor[taggedBuffer](w)
	if err := SetMaxComponentCount[taggedBuffer](w, 1); err != nil {
		t.Fatal(err)
	}

	src, _ := w.CreateEntity()
	dst, _ := w.CreateEntity()
	if _, err := pool.Set(src, taggedBuffer{data: []byte("hello")}); err != nil {
		t.Fatal(err)
	}

	// The pool is already at its capacity of one slot, so copying src's
	// value onto dst has nowhere to go.
	err := w.CopyTo(src, dst)
	if err == nil {
		t.Fatal("expected CopyTo to propagate the pool-full error")
	}
	if dst.IsAlive() {
		t.Fatal("destination entity must be disposed after a failed copy")
	}
}
