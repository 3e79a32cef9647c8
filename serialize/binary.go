package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/vectorstate/ecs"
)

// Binary implements the length-prefixed equivalent of Text: same logical
// schema (spec.md §6), one opcode byte per record followed by
// length-prefixed string/uint32 fields instead of a text line.
type Binary struct {
	Registry *Registry
}

type binOp byte

const (
	opMaxEntityCount binOp = iota
	opComponentType
	opMaxComponentCount
	opEntity
	opComponent
	opComponentFields
	opComponentSameAs
)

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (b *Binary) Serialize(w io.Writer, world *ecs.World) error {
	bw := bufio.NewWriter(w)

	if err := bw.WriteByte(byte(opMaxEntityCount)); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(world.MaxEntityCount())); err != nil {
		return err
	}

	tc := &binaryTypeCollector{reg: b.Registry, w: bw, world: world}
	world.ReadAllComponentTypes(tc)
	if tc.err != nil {
		return tc.err
	}

	entities := world.AliveEntities()
	ids := make(map[ecs.EntityID]int, len(entities))
	for i, e := range entities {
		ids[e.EntityID] = i
	}

	for i, e := range entities {
		if err := bw.WriteByte(byte(opEntity)); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(i)); err != nil {
			return err
		}
		ec := &binaryEntityCollector{reg: b.Registry, w: bw, ids: ids, self: e}
		world.ReadAllComponents(e, ec)
		if ec.err != nil {
			return ec.err
		}
	}
	return bw.Flush()
}

type binaryTypeCollector struct {
	reg   *Registry
	w     *bufio.Writer
	world *ecs.World
	err   error
}

func (c *binaryTypeCollector) OnReadType(sample any, maxComponentCount uint32) {
	if c.err != nil {
		return
	}
	t := reflect.TypeOf(sample)
	codec, ok := c.reg.byTypeName(t)
	if !ok {
		return
	}
	if err := c.w.WriteByte(byte(opComponentType)); err != nil {
		c.err = err
		return
	}
	if err := writeString(c.w, codec.Short); err != nil {
		c.err = err
		return
	}
	if err := writeString(c.w, t.String()); err != nil {
		c.err = err
		return
	}
	if maxComponentCount == uint32(c.world.MaxEntityCount()) {
		return
	}
	if err := c.w.WriteByte(byte(opMaxComponentCount)); err != nil {
		c.err = err
		return
	}
	if err := writeString(c.w, codec.Short); err != nil {
		c.err = err
		return
	}
	c.err = writeUint32(c.w, maxComponentCount)
}

type binaryEntityCollector struct {
	reg  *Registry
	w    *bufio.Writer
	ids  map[ecs.EntityID]int
	self ecs.Entity
	err  error
}

func (c *binaryEntityCollector) OnRead(component any, owner ecs.Entity) {
	if c.err != nil {
		return
	}
	v := reflect.ValueOf(component).Elem()
	codec, ok := c.reg.byTypeName(v.Type())
	if !ok {
		return
	}

	if owner.EntityID != c.self.EntityID {
		if err := c.w.WriteByte(byte(opComponentSameAs)); err != nil {
			c.err = err
			return
		}
		if err := writeString(c.w, codec.Short); err != nil {
			c.err = err
			return
		}
		c.err = writeUint32(c.w, uint32(c.ids[owner.EntityID]))
		return
	}

	if codec.isScalar() {
		if err := c.w.WriteByte(byte(opComponent)); err != nil {
			c.err = err
			return
		}
		if err := writeString(c.w, codec.Short); err != nil {
			c.err = err
			return
		}
		c.err = writeString(c.w, codec.EncodeScalar(v.Interface()))
		return
	}

	fields := codec.EncodeFields(v.Interface())
	if err := c.w.WriteByte(byte(opComponentFields)); err != nil {
		c.err = err
		return
	}
	if err := writeString(c.w, codec.Short); err != nil {
		c.err = err
		return
	}
	if err := writeUint32(c.w, uint32(len(fields))); err != nil {
		c.err = err
		return
	}
	for _, f := range fields {
		if err := writeString(c.w, f.Name); err != nil {
			c.err = err
			return
		}
		if err := writeString(c.w, f.Value); err != nil {
			c.err = err
			return
		}
	}
}

// Deserialize parses a stream written by Serialize into world.
func (b *Binary) Deserialize(r io.Reader, world *ecs.World) error {
	br := bufio.NewReader(r)
	var current ecs.Entity
	haveEntity := false
	ids := make(map[int]ecs.Entity)

	for {
		opByte, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch binOp(opByte) {
		case opMaxEntityCount:
			if _, err := readUint32(br); err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
		case opComponentType:
			if _, err := readString(br); err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			if _, err := readString(br); err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
		case opMaxComponentCount:
			short, err := readString(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			n, err := readUint32(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			codec, ok := b.Registry.byShortName(short)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", short)
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", short)
			}
			if err := pool.SetMaxComponentCountAny(n); err != nil {
				return err
			}
		case opEntity:
			n, err := readUint32(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			e, err := world.CreateEntity()
			if err != nil {
				return err
			}
			ids[int(n)] = e
			current = e
			haveEntity = true
		case opComponent:
			if !haveEntity {
				return errors.Wrap(ErrMalformed, "component before any Entity record")
			}
			short, err := readString(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			value, err := readString(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			codec, ok := b.Registry.byShortName(short)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", short)
			}
			if !codec.isScalar() {
				return errors.Wrapf(ErrMalformed, "%s is not scalar", short)
			}
			v, err := codec.DecodeScalar(value)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", short)
			}
			if err := pool.SetAny(current, v); err != nil {
				return err
			}
		case opComponentFields:
			if !haveEntity {
				return errors.Wrap(ErrMalformed, "component before any Entity record")
			}
			short, err := readString(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			count, err := readUint32(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			fields := make([]Field, count)
			for i := range fields {
				name, err := readString(br)
				if err != nil {
					return errors.Wrap(ErrMalformed, err.Error())
				}
				val, err := readString(br)
				if err != nil {
					return errors.Wrap(ErrMalformed, err.Error())
				}
				fields[i] = Field{Name: name, Value: val}
			}
			codec, ok := b.Registry.byShortName(short)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", short)
			}
			v, err := codec.DecodeFields(fields)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", short)
			}
			if err := pool.SetAny(current, v); err != nil {
				return err
			}
		case opComponentSameAs:
			if !haveEntity {
				return errors.Wrap(ErrMalformed, "ComponentSameAs before any Entity record")
			}
			short, err := readString(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			refN, err := readUint32(br)
			if err != nil {
				return errors.Wrap(ErrMalformed, err.Error())
			}
			ref, ok := ids[int(refN)]
			if !ok {
				return errors.Wrapf(ErrMalformed, "ComponentSameAs references unknown entity %d", refN)
			}
			codec, ok := b.Registry.byShortName(short)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "%s", short)
			}
			pool, ok := world.PoolByType(codec.Type)
			if !ok {
				return errors.Wrapf(ErrUnknownType, "pool for %s", short)
			}
			if err := pool.SetSameAsAny(current, ref); err != nil {
				return err
			}
		default:
			return errors.Wrapf(ErrMalformed, "unknown opcode %d", opByte)
		}
	}
}
