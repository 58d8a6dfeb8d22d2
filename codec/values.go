package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/internal/binary"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
	"go.uber.org/zap"
)

// maxNesting bounds how deep inline classes and arrays may nest.
const maxNesting = 1024

// typeCache memoizes parsed type names for one decode or encode, so its
// size is bounded by that package's name pool.
type typeCache map[string]*red.Type

func (tc *typeCache) parse(name string) (*red.Type, error) {
	if t, ok := (*tc)[name]; ok {
		return t, nil
	}
	t, err := red.ParseType(name)
	if err != nil {
		return nil, err
	}
	if *tc == nil {
		*tc = make(typeCache)
	}
	(*tc)[name] = t
	return t, nil
}

type fieldHeader struct {
	offset uint32
	name   uint16
	typ    uint16
}

// readBody decodes a class body starting at c into inst and returns the
// absolute position after its last value. Values must follow the field
// table contiguously, in header order.
func (d *decoder) readBody(c binary.Cursor, desc *registry.TypeDescriptor, inst red.Class, path []string) (int, error) {
	start := c.Pos()

	n, err := c.U16()
	if err != nil {
		return 0, truncated(errors.PhaseChunk, path, &c, err)
	}
	if int(n)*fieldDescSize > c.Remaining() {
		return 0, errors.MalformedPool(errors.PhaseChunk, path,
			fmt.Sprintf("%d field headers exceed data", n), nil)
	}

	headers := make([]fieldHeader, n)
	for i := range headers {
		fh := &headers[i]
		if fh.name, err = c.U16(); err != nil {
			return 0, truncated(errors.PhaseChunk, path, &c, err)
		}
		if fh.typ, err = c.U16(); err != nil {
			return 0, truncated(errors.PhaseChunk, path, &c, err)
		}
		if fh.offset, err = c.U32(); err != nil {
			return 0, truncated(errors.PhaseChunk, path, &c, err)
		}
	}

	target := newFieldTarget(desc, inst, len(headers))

	for _, fh := range headers {
		if rel := c.Pos() - start; int64(fh.offset) != int64(rel) {
			return 0, errors.MalformedPool(errors.PhaseChunk, path,
				fmt.Sprintf("field value at offset %d, want %d", fh.offset, rel), nil)
		}
		name, err := d.name(int(fh.name), path)
		if err != nil {
			return 0, err
		}
		typeName, err := d.name(int(fh.typ), path)
		if err != nil {
			return 0, err
		}
		fieldPath := append(path[:len(path):len(path)], name)

		t, err := d.types.parse(typeName)
		if err != nil {
			return 0, errors.New(errors.PhaseChunk, errors.KindUnsupportedFeature).
				Path(fieldPath...).
				RedType(typeName).
				Cause(err).
				Build()
		}

		v, err := d.readValue(&c, t, fieldPath)
		if err != nil {
			return 0, err
		}
		if err := target.store(name, typeName, v, fieldPath); err != nil {
			return 0, err
		}
	}

	return c.Pos(), nil
}

func (d *decoder) readValue(c *binary.Cursor, t *red.Type, path []string) (any, error) {
	short := func(err error) error {
		return truncated(errors.PhaseChunk, path, c, err)
	}

	switch t.Kind {
	case red.KindBool:
		b, err := c.U8()
		if err != nil {
			return nil, short(err)
		}
		if b > 1 {
			return nil, errors.MalformedPool(errors.PhaseChunk, path,
				fmt.Sprintf("bool byte %d", b), nil)
		}
		return b == 1, nil
	case red.KindInt8:
		b, err := c.U8()
		if err != nil {
			return nil, short(err)
		}
		return int8(b), nil
	case red.KindUint8:
		b, err := c.U8()
		if err != nil {
			return nil, short(err)
		}
		return b, nil
	case red.KindInt16:
		v, err := c.I16()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindUint16:
		v, err := c.U16()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindInt32:
		v, err := c.I32()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindUint32:
		v, err := c.U32()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindInt64:
		v, err := c.I64()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindUint64:
		v, err := c.U64()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindFloat:
		v, err := c.F32()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindDouble:
		v, err := c.F64()
		if err != nil {
			return nil, short(err)
		}
		return v, nil
	case red.KindCName:
		i, err := c.U16()
		if err != nil {
			return nil, short(err)
		}
		s, err := d.name(int(i), path)
		if err != nil {
			return nil, err
		}
		return red.CName(s), nil
	case red.KindString:
		n, err := c.U32()
		if err != nil {
			return nil, short(err)
		}
		b, err := c.Bytes(int(n))
		if err != nil {
			return nil, short(err)
		}
		if !utf8.Valid(b) {
			return nil, errors.MalformedPool(errors.PhaseChunk, path, "string is not UTF-8",
				errors.InvalidUTF8(errors.PhaseChunk, path, b))
		}
		return string(b), nil
	case red.KindCRUID:
		v, err := c.U64()
		if err != nil {
			return nil, short(err)
		}
		return red.CRUID(v), nil
	case red.KindTweakDBID:
		v, err := c.U64()
		if err != nil {
			return nil, short(err)
		}
		return red.TweakDBID(v), nil
	case red.KindArray:
		if err := d.enter(path); err != nil {
			return nil, err
		}
		defer d.leave()
		return d.readArray(c, t, path)
	case red.KindHandle, red.KindWeakHandle:
		idx, err := c.I32()
		if err != nil {
			return nil, short(err)
		}
		if idx == -1 {
			return nil, nil
		}
		p := patch{path: path, chunk: d.chunk}
		var v any
		if t.Kind == red.KindHandle {
			h := &red.Handle{Index: idx}
			p.strong, v = h, h
		} else {
			h := &red.WeakHandle{Index: idx}
			p.weak, v = h, h
		}
		if idx >= 0 && int(idx) < len(d.pkg.Chunks) {
			p.bind(d.pkg.Chunks[idx])
		} else {
			d.queue.push(idx, p)
		}
		return v, nil
	case red.KindResourceRef, red.KindResourceAsyncRef:
		idx, err := c.I16()
		if err != nil {
			return nil, short(err)
		}
		if idx == -1 {
			return nil, nil
		}
		if idx < 0 || int(idx) >= len(d.pkg.Imports) {
			return nil, errors.MalformedPool(errors.PhaseChunk, path,
				fmt.Sprintf("import index %d out of range", idx),
				errors.OutOfBounds(errors.PhaseChunk, path, int(idx), len(d.pkg.Imports)))
		}
		return &red.ResourceRef{Index: idx}, nil
	case red.KindClass:
		if err := d.enter(path); err != nil {
			return nil, err
		}
		defer d.leave()
		desc := d.resolve(t.Class)
		inst := desc.New()
		end, err := d.readBody(*c, desc, inst, path)
		if err != nil {
			return nil, err
		}
		if *c, err = c.Seek(end); err != nil {
			return nil, short(err)
		}
		return inst, nil
	}

	return nil, errors.New(errors.PhaseChunk, errors.KindUnsupportedFeature).
		Path(path...).
		RedType(t.Name).
		Build()
}

func (d *decoder) enter(path []string) error {
	if d.depth >= maxNesting {
		return errors.MalformedPool(errors.PhaseChunk, path,
			fmt.Sprintf("nesting exceeds %d levels", maxNesting), nil)
	}
	d.depth++
	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) readArray(c *binary.Cursor, t *red.Type, path []string) (any, error) {
	n, err := c.U32()
	if err != nil {
		return nil, truncated(errors.PhaseChunk, path, c, err)
	}
	// Every element occupies at least one byte.
	if int64(n) > int64(c.Remaining()) {
		return nil, errors.MalformedPool(errors.PhaseChunk, path,
			fmt.Sprintf("array of %d elements exceeds remaining %d bytes", n, c.Remaining()), nil)
	}

	out := make([]any, n)
	for i := range out {
		elemPath := append(path[:len(path):len(path)], "["+strconv.Itoa(i)+"]")
		if out[i], err = d.readValue(c, t.Elem, elemPath); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolve looks a class name up in the registry, noting dynamic fallbacks.
// Dynamic descriptors are cached per decode; names come from the package's
// own name pool.
func (d *decoder) resolve(name string) *registry.TypeDescriptor {
	if desc, ok := d.dynamic[name]; ok {
		return desc
	}
	desc, known := d.reg.Resolve(name)
	if known {
		return desc
	}
	Logger().Debug("unknown class, decoding dynamically",
		zap.String("type", name),
		zap.Int("chunk", d.chunk))
	if d.dynamic == nil {
		d.dynamic = make(map[string]*registry.TypeDescriptor)
	}
	d.dynamic[name] = desc
	return desc
}

// fieldTarget stores decoded fields into a static struct or a dynamic
// field list.
type fieldTarget struct {
	dynamic *red.Dynamic
	base    *red.Base
	shape   *registry.Shape
	value   reflect.Value
	seen    map[string]bool
}

func newFieldTarget(desc *registry.TypeDescriptor, inst red.Class, n int) *fieldTarget {
	if desc.Dynamic() {
		dyn := inst.(*red.Dynamic)
		dyn.Fields = make([]red.Field, 0, n)
		return &fieldTarget{dynamic: dyn}
	}
	base := inst.(red.Serialized).RedBase()
	base.Layout = make([]red.Slot, 0, n)
	return &fieldTarget{
		base:  base,
		shape: desc.Shape,
		value: reflect.ValueOf(inst).Elem(),
		seen:  make(map[string]bool, n),
	}
}

// store places one decoded field. Static fields that match the shape by
// name and type go into the struct; everything else goes to Base.Extra.
func (ft *fieldTarget) store(name, typeName string, v any, path []string) error {
	if ft.dynamic != nil {
		ft.dynamic.Fields = append(ft.dynamic.Fields, red.Field{Name: name, Type: typeName, Value: v})
		return nil
	}

	if f, ok := ft.shape.Field(name); ok && f.Type.Name == typeName && !ft.seen[name] {
		if !assign(ft.value.Field(f.Index), v) {
			return errors.TypeMismatch(errors.PhaseChunk, path, f.GoType.String(), typeName)
		}
		ft.seen[name] = true
		ft.base.Layout = append(ft.base.Layout, red.Slot{Name: name, Extra: -1})
		return nil
	}

	ft.base.Extra = append(ft.base.Extra, red.Field{Name: name, Type: typeName, Value: v})
	ft.base.Layout = append(ft.base.Layout, red.Slot{Name: name, Extra: len(ft.base.Extra) - 1})
	return nil
}

// assign sets dst from a generically decoded value.
func assign(dst reflect.Value, v any) bool {
	if v == nil {
		dst.SetZero()
		return true
	}
	if list, ok := v.([]any); ok && dst.Kind() == reflect.Slice {
		out := reflect.MakeSlice(dst.Type(), len(list), len(list))
		for i, elem := range list {
			if !assign(out.Index(i), elem) {
				return false
			}
		}
		dst.Set(out)
		return true
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return true
	}
	if rv.Kind() == dst.Kind() && rv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(rv.Convert(dst.Type()))
		return true
	}
	return false
}
