package main

import (
	"strconv"

	"github.com/vectorstate/ecs"
	"github.com/vectorstate/ecs/serialize"
)

// Position and Name are the demo component types ecsctl operates on. A
// real client would register its own domain types the same way; ecsctl
// ships with just enough of a toy domain to exercise create/dump/load/
// inspect end to end.
type Position struct {
	X, Y float64
}

type Name struct {
	Value string
}

func newRegistry(w *ecs.World) *serialize.Registry {
	reg := serialize.NewRegistry()
	serialize.RegisterCompound[Position](reg, w, "pos",
		func(p Position) []serialize.Field {
			return []serialize.Field{
				{Name: "x", Value: strconv.FormatFloat(p.X, 'g', -1, 64)},
				{Name: "y", Value: strconv.FormatFloat(p.Y, 'g', -1, 64)},
			}
		},
		func(fields []serialize.Field) (Position, error) {
			var p Position
			for _, f := range fields {
				v, err := strconv.ParseFloat(f.Value, 64)
				if err != nil {
					return p, err
				}
				switch f.Name {
				case "x":
					p.X = v
				case "y":
					p.Y = v
				}
			}
			return p, nil
		},
	)
	serialize.RegisterScalar[Name](reg, w, "name",
		func(n Name) string { return strconv.Quote(n.Value) },
		func(s string) (Name, error) {
			v, err := strconv.Unquote(s)
			return Name{Value: v}, err
		},
	)
	return reg
}
