// Package serialize implements the text and binary ISerializer clients of
// spec.md §6 against the public ecs package surface: Reader, TypeReader,
// and World.PoolByType/EnsurePool. Neither client reaches into pool
// internals.
package serialize

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/vectorstate/ecs"
)

// Field is one name/value pair of a compound component's wire encoding.
// Value is the already-scalar-encoded token (quoted if it is a string).
type Field struct {
	Name  string
	Value string
}

// Codec is a component type's wire encoding. A scalar type sets
// EncodeScalar/DecodeScalar; a compound type sets EncodeFields/DecodeFields
// instead and is written as a `{ ... }` block.
type Codec struct {
	Short string
	Type  reflect.Type

	EncodeScalar func(v any) string
	DecodeScalar func(s string) (any, error)

	EncodeFields func(v any) []Field
	DecodeFields func(fields []Field) (any, error)
}

func (c Codec) isScalar() bool { return c.EncodeScalar != nil }

// Registry maps component types to their wire Codec. One Registry is
// typically shared by a Text and a Binary serializer.
type Registry struct {
	byShort map[string]Codec
	byType  map[reflect.Type]Codec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byShort: make(map[string]Codec), byType: make(map[reflect.Type]Codec)}
}

func (r *Registry) register(c Codec) {
	r.byShort[c.Short] = c
	r.byType[c.Type] = c
}

func (r *Registry) byTypeName(t reflect.Type) (Codec, bool) {
	c, ok := r.byType[t]
	return c, ok
}

func (r *Registry) byShortName(short string) (Codec, bool) {
	c, ok := r.byShort[short]
	return c, ok
}

// RegisterScalar registers T under short with the given encode/decode pair,
// and eagerly creates T's pool in w so it is enumerated by
// World.ReadAllComponentTypes even before any entity holds one (spec.md
// §4.1's registered-pool semantics).
func RegisterScalar[T any](r *Registry, w *ecs.World, short string, encode func(T) string, decode func(string) (T, error)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.register(Codec{
		Short: short,
		Type:  t,
		EncodeScalar: func(v any) string {
			return encode(v.(T))
		},
		DecodeScalar: func(s string) (any, error) {
			return decode(s)
		},
	})
	ecs.EnsurePool[T](w)
}

// RegisterCompound registers a struct type T that encodes as a field
// block rather than a single scalar token.
func RegisterCompound[T any](r *Registry, w *ecs.World, short string, encodeFields func(T) []Field, decodeFields func([]Field) (T, error)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.register(Codec{
		Short: short,
		Type:  t,
		EncodeFields: func(v any) []Field {
			return encodeFields(v.(T))
		},
		DecodeFields: func(fields []Field) (any, error) {
			return decodeFields(fields)
		},
	})
	ecs.EnsurePool[T](w)
}

// ErrUnknownType and ErrMalformed are both instances of spec.md §7's
// single SerializationError kind (ecs.ErrSerialization); they are kept
// distinct here only for a more specific message, and both satisfy
// errors.Is(err, ecs.ErrSerialization).
var (
	ErrUnknownType = errors.Wrap(ecs.ErrSerialization, "unknown component type token")
	ErrMalformed   = errors.Wrap(ecs.ErrSerialization, "malformed stream")
)
