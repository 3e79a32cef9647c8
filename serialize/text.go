package serialize

import (
	"bufio"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vectorstate/ecs"
)

// Text implements the line-oriented text grammar of spec.md §6:
//
//	MaxEntityCount <n>
//	ComponentType <short> <fully-qualified-type>
//	MaxComponentCount <short> <n>
//
//	Entity <n>
//	Component <short> <scalar-or-object>
//	ComponentSameAs <short> <entity-n>
type Text struct {
	Registry *Registry
}

func (t *Text) Serialize(w io.Writer, world *ecs.World) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("MaxEntityCount " + strconv.Itoa(world.MaxEntityCount()) + "\n"); err != nil {
		return err
	}

	tc := &typeCollector{reg: t.Registry, w: bw, world: world}
	world.ReadAllComponentTypes(tc)
	if tc.err != nil {
		return tc.err
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	entities := world.AliveEntities()
	ids := make(map[ecs.EntityID]int, len(entities))
	for i, e := range entities {
		ids[e.EntityID] = i
	}

	for i, e := range entities {
		if _, err := bw.WriteString("Entity " + strconv.Itoa(i) + "\n"); err != nil {
			return err
		}
		ec := &entityCollector{reg: t.Registry, w: bw, ids: ids, self: e}
		world.ReadAllComponents(e, ec)
		if ec.err != nil {
			return ec.err
		}
	}
	return bw.Flush()
}

type typeCollector struct {
	reg   *Registry
	w     *bufio.Writer
	world *ecs.World
	err   error
}

func (c *typeCollector) OnReadType(sample any, maxComponentCount uint32) {
	if c.err != nil {
		return
	}
	t := reflect.TypeOf(sample)
	codec, ok := c.reg.byTypeName(t)
	if !ok {
		return
	}
	if _, err := c.w.WriteString("ComponentType " + codec.Short + " " + t.String() + "\n"); err != nil {
		c.err = err
		return
	}
	if maxComponentCount != uint32(c.world.MaxEntityCount()) {
		line := "MaxComponentCount " + codec.Short + " " + strconv.FormatUint(uint64(maxComponentCount), 10) + "\n"
		if _, err := c.w.WriteString(line); err != nil {
			c.err = err
		}
	}
}

type entityCollector struct {
	reg  *Registry
	w    *bufio.Writer
	ids  map[ecs.EntityID]int
	self ecs.Entity
	err  error
}

func (c *entityCollector) OnRead(component any, owner ecs.Entity) {
	if c.err != nil {
		return
	}
	v := reflect.ValueOf(component).Elem()
	codec, ok := c.reg.byTypeName(v.Type())
	if !ok {
		return
	}

	if owner.EntityID != c.self.EntityID {
		line := "ComponentSameAs " + codec.Short + " " + strconv.Itoa(c.ids[owner.EntityID]) + "\n"
		_, c.err = c.w.WriteString(line)
		return
	}

	if codec.isScalar() {
		line := "Component " + codec.Short + " " + codec.EncodeScalar(v.Interface()) + "\n"
		_, c.err = c.w.WriteString(line)
		return
	}

	if _, err := c.w.WriteString("Component " + codec.Short + " {\n"); err != nil {
		c.err = err
		return
	}
	for _, f := range codec.EncodeFields(v.Interface()) {
		if _, err := c.w.WriteString("  " + f.Name + " " + f.Value + "\n"); err != nil {
			c.err = err
			return
		}
	}
	_, c.err = c.w.WriteString("}\n")
}

// Deserialize parses a text stream written by Serialize into world,
// creating fresh entities in it (spec.md §6's parse rules: blank lines and
// unknown leading tokens are ignored; a Component line before any Entity
// line is a SerializationError).
func (t *Text) Deserialize(r io.Reader, world *ecs.World) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var current ecs.Entity
	haveEntity := false
	ids := make(map[int]ecs.Entity)

	var inBlock bool
	var blockShort string
	var blockTarget ecs.Entity
	var blockFields []Field

	flushBlock := func() error {
		codec, ok := t.Registry.byShortName(blockShort)
		if !ok {
			return errors.Wrapf(ErrUnknownType, "%s", blockShort)
		}
		pool, ok := world.PoolByType(codec.Type)
		if !ok {
			return errors.Wrapf(ErrUnknownType, "pool for %s not registered", blockShort)
		}
		v, err := codec.DecodeFields(blockFields)
		if err != nil {
			return errors.Wrap(ErrMalformed, err.Error())
		}
		if err := pool.SetAny(blockTarget, v); err != nil {
			return err
		}
		inBlock = false
		blockFields = nil
		return nil
	}

	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if inBlock {
			if trimmed == "}" {
				if err := flushBlock(); err != nil {
					return err
				}
				continue
			}
			parts := strings.SplitN(trimmed, " ", 2)
			if len(parts) != 2 {
				return errors.Wrapf(ErrMalformed, "field line %q", line)
			}
			blockFields = append(blockFields, Field{Name: parts[0], Value: parts[1]})
			continue
		}

		parts := strings.SplitN(trimmed, " ", 2)
		keyword := parts[0]
		rest := ""
		if len(parts) > 1 {
			rest = parts[1]
		}

		switch keyword {
		case "MaxEntityCount", "ComponentType":
			// informational: world capacity and type bindings are
			// established by the caller's Register* calls beforehand.
		case "MaxComponentCount":
			kv := strings.SplitN(rest, " ", 2)
			if len(kv) != 2 {
				return errors.Wrapf(ErrMalformed, "%q", line)
			}
			codec, ok := t.Registry.byShortName(kv[0])
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", kv[0])
			}
			n, err := strconv.ParseUint(strings.TrimSpace(kv[1]), 10, 32)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", kv[0])
			}
			if err := pool.SetMaxComponentCountAny(uint32(n)); err != nil {
				return err
			}
		case "Entity":
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			e, err := world.CreateEntity()
			if err != nil {
				return err
			}
			ids[n] = e
			current = e
			haveEntity = true
		case "Component":
			if !haveEntity {
				return errors.Wrap(ErrMalformed, "component before any Entity line")
			}
			kv := strings.SplitN(rest, " ", 2)
			if len(kv) != 2 {
				return errors.Wrapf(ErrMalformed, "%q", line)
			}
			short, value := kv[0], strings.TrimSpace(kv[1])
			codec, ok := t.Registry.byShortName(short)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", short)
			}
			if value == "{" {
				inBlock, blockShort, blockTarget, blockFields = true, short, current, nil
				continue
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", short)
			}
			if !codec.isScalar() {
				return errors.Wrapf(ErrMalformed, "%s requires a { } block", short)
			}
			v, err := codec.DecodeScalar(value)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			if err := pool.SetAny(current, v); err != nil {
				return err
			}
		case "ComponentSameAs":
			if !haveEntity {
				return errors.Wrap(ErrMalformed, "ComponentSameAs before any Entity line")
			}
			kv := strings.SplitN(rest, " ", 2)
			if len(kv) != 2 {
				return errors.Wrapf(ErrMalformed, "%q", line)
			}
			refN, err := strconv.Atoi(strings.TrimSpace(kv[1]))
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			ref, ok := ids[refN]
			if !ok {
				return errors.Wrapf(ErrMalformed, "ComponentSameAs references unknown entity %d", refN)
			}
			codec, ok := t.Registry.byShortName(kv[0])
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", kv[0])
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", kv[0])
			}
			if err := pool.SetSameAsAny(current, ref); err != nil {
				return err
			}
		default:
			// unknown leading tokens ignored, per spec.md §6.
		}
	}
	return sc.Err()
}
