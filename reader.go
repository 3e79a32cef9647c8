package ecs

// Reader is the per-entity component-reader callback (spec.md §6):
// OnRead[T] is invoked once per component type the target entity carries,
// with a pointer to the live value and the handle of the slot's canonical
// owner (used by serializers as the SameAs authoring entity).
//
// Go cannot express a single generic method on a non-generic interface, so
// the callback is erased: implementations type-switch on the concrete
// *T passed in component (always a non-nil pointer to T). The serializers
// in package serialize do not type-switch; they reflect on the pointer's
// element type to look up the component's registered Codec (see
// serialize.Registry).
type Reader interface {
	OnRead(component any, owner Entity)
}

// ReaderFunc adapts a plain function to a Reader.
type ReaderFunc func(component any, owner Entity)

func (f ReaderFunc) OnRead(component any, owner Entity) { f(component, owner) }

// TypeReader is the per-pool component-type-reader callback (spec.md §6):
// OnReadType is invoked once per registered pool, regardless of whether
// any entity currently holds the type.
type TypeReader interface {
	OnReadType(sample any, maxComponentCount uint32)
}

// TypeReaderFunc adapts a plain function to a TypeReader.
type TypeReaderFunc func(sample any, maxComponentCount uint32)

func (f TypeReaderFunc) OnReadType(sample any, maxComponentCount uint32) { f(sample, maxComponentCount) }
