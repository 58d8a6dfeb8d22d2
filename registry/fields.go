package registry

import (
	"reflect"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

// Fields returns the serialized fields of cls in serialization order.
// Static classes without a recorded layout report every shape field in
// declaration order.
func (r *Registry) Fields(cls red.Class) ([]red.Field, error) {
	if cls == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "red.Class")
	}
	if d, ok := cls.(*red.Dynamic); ok {
		if d == nil {
			return nil, errors.NilPointer(errors.PhaseEncode, nil, "*red.Dynamic")
		}
		out := make([]red.Field, len(d.Fields))
		copy(out, d.Fields)
		return out, nil
	}

	name := cls.ClassName()
	desc, ok := r.Lookup(name)
	if !ok {
		return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			GoType(reflect.TypeOf(cls).String()).
			RedType(name).
			Detail("static class is not registered").
			Build()
	}

	rv := reflect.ValueOf(cls)
	if rv.Type() != reflect.PointerTo(desc.Shape.GoType) {
		return nil, errors.TypeMismatch(errors.PhaseEncode, []string{name}, rv.Type().String(), name)
	}
	if rv.IsNil() {
		return nil, errors.NilPointer(errors.PhaseEncode, []string{name}, rv.Type().String())
	}
	sv := rv.Elem()
	base := cls.(red.Serialized).RedBase()

	if base.Layout == nil {
		out := make([]red.Field, 0, len(desc.Shape.Fields)+len(base.Extra))
		for _, f := range desc.Shape.Fields {
			out = append(out, red.Field{
				Name:  f.Name,
				Type:  f.Type.Name,
				Value: sv.Field(f.Index).Interface(),
			})
		}
		return append(out, base.Extra...), nil
	}

	out := make([]red.Field, 0, len(base.Layout))
	for _, slot := range base.Layout {
		if slot.Extra >= 0 {
			if slot.Extra >= len(base.Extra) {
				return nil, errors.OutOfBounds(errors.PhaseEncode, []string{name, slot.Name}, slot.Extra, len(base.Extra))
			}
			out = append(out, base.Extra[slot.Extra])
			continue
		}
		f, ok := desc.Shape.Field(slot.Name)
		if !ok {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(name, slot.Name).
				Detail("layout names a field the shape does not have").
				Build()
		}
		out = append(out, red.Field{
			Name:  f.Name,
			Type:  f.Type.Name,
			Value: sv.Field(f.Index).Interface(),
		})
	}
	return out, nil
}
