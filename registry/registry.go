package registry

import (
	"reflect"
	"sort"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

// TypeDescriptor pairs a class name with its constructor.
// Shape is nil for the dynamic variant.
type TypeDescriptor struct {
	New   func() red.Class
	Shape *Shape
	Name  string
}

// Dynamic reports whether the descriptor is the generic fallback.
func (d *TypeDescriptor) Dynamic() bool {
	return d.Shape == nil
}

// Registry is an immutable set of static class descriptors.
// A nil *Registry resolves every name dynamically.
type Registry struct {
	types map[string]*TypeDescriptor
}

// New builds a registry from prototype values. Each prototype must be a
// pointer to a struct embedding red.Base; only its type is used.
func New(protos ...red.Class) (*Registry, error) {
	r := &Registry{types: make(map[string]*TypeDescriptor, len(protos))}

	for _, proto := range protos {
		if proto == nil {
			return nil, errors.NilPointer(errors.PhaseCompile, nil, "red.Class")
		}
		name := proto.ClassName()
		if name == "" {
			return nil, errors.Registration(reflect.TypeOf(proto).String(),
				errors.InvalidInput(errors.PhaseCompile, "empty class name"))
		}
		if _, exists := r.types[name]; exists {
			return nil, errors.Registration(name,
				errors.InvalidInput(errors.PhaseCompile, "class registered twice"))
		}

		ptr := reflect.TypeOf(proto)
		shape, err := compileShape(ptr)
		if err != nil {
			return nil, errors.Registration(name, err)
		}

		elem := ptr.Elem()
		r.types[name] = &TypeDescriptor{
			Name:  name,
			Shape: shape,
			New: func() red.Class {
				return reflect.New(elem).Interface().(red.Class)
			},
		}
	}

	// Inline class fields typed as a concrete pointer must name a class
	// registered with that same Go type.
	for name, desc := range r.types {
		for _, f := range desc.Shape.Fields {
			if err := r.checkInline(f.Type, f.GoType); err != nil {
				return nil, errors.Registration(name, err)
			}
		}
	}

	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(protos ...red.Class) *Registry {
	r, err := New(protos...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) checkInline(t *red.Type, gt reflect.Type) error {
	switch t.Kind {
	case red.KindArray:
		return r.checkInline(t.Elem, gt.Elem())
	case red.KindClass:
		if gt == classType {
			return nil
		}
		desc, ok := r.types[t.Class]
		if !ok {
			return errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
				GoType(gt.String()).
				RedType(t.Name).
				Detail("inline class %s is not registered", t.Class).
				Build()
		}
		if desc.Shape.GoType != gt.Elem() {
			return errors.TypeMismatch(errors.PhaseCompile, nil, gt.String(), t.Name)
		}
	}
	return nil
}

// Lookup returns the static descriptor for name, without fallback.
func (r *Registry) Lookup(name string) (*TypeDescriptor, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.types[name]
	return d, ok
}

// Resolve returns the static descriptor for name, or a new dynamic
// descriptor when none is registered. The boolean reports whether name was
// known. Unknown names are never retained, so a shared registry does not
// grow with its input.
func (r *Registry) Resolve(name string) (*TypeDescriptor, bool) {
	if d, ok := r.Lookup(name); ok {
		return d, true
	}
	return dynamicDescriptor(name), false
}

func dynamicDescriptor(name string) *TypeDescriptor {
	return &TypeDescriptor{
		Name: name,
		New: func() red.Class {
			return red.NewDynamic(name)
		},
	}
}

// Names returns the registered static class names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of static classes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.types)
}
