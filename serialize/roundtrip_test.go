package serialize_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vectorstate/ecs"
	"github.com/vectorstate/ecs/serialize"
)

type intComp struct{ V int }
type strComp struct{ V string }

func buildRegistry(w *ecs.World) *serialize.Registry {
	reg := serialize.NewRegistry()
	serialize.RegisterScalar[intComp](reg, w, "int",
		func(c intComp) string { return strconv.Itoa(c.V) },
		func(s string) (intComp, error) {
			n, err := strconv.Atoi(s)
			return intComp{V: n}, err
		},
	)
	serialize.RegisterScalar[strComp](reg, w, "str",
		func(c strComp) string { return strconv.Quote(c.V) },
		func(s string) (strComp, error) {
			v, err := strconv.Unquote(s)
			return strComp{V: v}, err
		},
	)
	return reg
}

func TestTextRoundTripPreservesValuesAndAliasing(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{MaxEntities: 16})
	defer w.Close()
	reg := buildRegistry(w)

	e1, _ := w.CreateEntity()
	e2, _ := w.CreateEntity()
	intPool := ecs.EnsurePool[intComp](w)
	strPool := ecs.EnsurePool[strComp](w)

	_ = intPool.SetAny(e1, intComp{V: 7})
	_ = strPool.SetAny(e1, strComp{V: "hi"})
	_ = strPool.SetSameAsAny(e2, e1)

	var buf bytes.Buffer
	text := &serialize.Text{Registry: reg}
	if err := text.Serialize(&buf, w); err != nil {
		t.Fatal(err)
	}

	w2 := ecs.NewWorld(ecs.Options{MaxEntities: 16})
	defer w2.Close()
	reg2 := buildRegistry(w2)
	text2 := &serialize.Text{Registry: reg2}
	if err := text2.Deserialize(&buf, w2); err != nil {
		t.Fatalf("deserialize failed: %v\nstream:\n%s", err, buf.String())
	}

	entities := w2.AliveEntities()
	if len(entities) != 2 {
		t.Fatalf("want 2 entities, got %d", len(entities))
	}

	intPool2 := ecs.EnsurePool[intComp](w2)
	strPool2 := ecs.EnsurePool[strComp](w2)

	var intVals []int
	var strVals []string
	for _, e := range entities {
		if intPool2.Has(e) {
			intVals = append(intVals, intPool2.GetAny(e).(intComp).V)
		}
		strVals = append(strVals, strPool2.GetAny(e).(strComp).V)
	}

	if diff := cmp.Diff([]int{7}, intVals); diff != "" {
		t.Fatalf("int values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hi", "hi"}, strVals); diff != "" {
		t.Fatalf("str values mismatch (-want +got):\n%s", diff)
	}

	strA := strPool2.GetAny(entities[0]).(strComp)
	strB := strPool2.GetAny(entities[1]).(strComp)
	if strA.V != strB.V {
		t.Fatal("both entities should share the same aliased string component value")
	}
}
