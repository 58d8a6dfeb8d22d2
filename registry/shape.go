package registry

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

// Shape is the compiled serialized layout of a static class.
type Shape struct {
	GoType reflect.Type
	byName map[string]int
	Fields []ShapeField
}

// ShapeField describes one tagged struct field.
type ShapeField struct {
	GoType reflect.Type
	Type   *red.Type
	Name   string
	Index  int
}

// Field returns the shape field called name.
func (s *Shape) Field(name string) (*ShapeField, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.Fields[i], true
}

var (
	classType      = reflect.TypeOf((*red.Class)(nil)).Elem()
	serializedType = reflect.TypeOf((*red.Serialized)(nil)).Elem()
	cnameType      = reflect.TypeOf(red.CName(""))
	cruidType      = reflect.TypeOf(red.CRUID(0))
	tweakType      = reflect.TypeOf(red.TweakDBID(0))
	handleType     = reflect.TypeOf((*red.Handle)(nil))
	weakType       = reflect.TypeOf((*red.WeakHandle)(nil))
	resourceType   = reflect.TypeOf((*red.ResourceRef)(nil))
)

var shapeCache sync.Map // reflect.Type -> *Shape

// compileShape compiles the struct behind a pointer prototype type.
func compileShape(ptr reflect.Type) (*Shape, error) {
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Struct {
		return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
			GoType(ptr.String()).
			Detail("static classes must be pointers to structs").
			Build()
	}
	if !ptr.Implements(serializedType) {
		return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
			GoType(ptr.String()).
			Detail("static classes must embed red.Base").
			Build()
	}

	st := ptr.Elem()
	if cached, ok := shapeCache.Load(st); ok {
		return cached.(*Shape), nil
	}

	shape := &Shape{
		GoType: st,
		byName: make(map[string]int),
	}

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		tag, ok := sf.Tag.Lookup("red")
		if !ok || tag == "-" {
			continue
		}
		path := []string{st.Name(), sf.Name}
		if !sf.IsExported() {
			return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
				Path(path...).
				Detail("tagged field is unexported").
				Build()
		}

		name, typeName, found := strings.Cut(tag, ",")
		if !found || name == "" || typeName == "" {
			return nil, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(path...).
				Detail("tag %q must be \"name,Type\"", tag).
				Build()
		}
		if _, dup := shape.byName[name]; dup {
			return nil, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(path...).
				Detail("duplicate field name %q", name).
				Build()
		}

		t, err := red.ParseType(typeName)
		if err != nil {
			return nil, errors.New(errors.PhaseCompile, errors.KindUnsupportedFeature).
				Path(path...).
				Cause(err).
				Build()
		}
		if err := checkGoType(t, sf.Type, path); err != nil {
			return nil, err
		}

		shape.byName[name] = len(shape.Fields)
		shape.Fields = append(shape.Fields, ShapeField{
			GoType: sf.Type,
			Type:   t,
			Name:   name,
			Index:  i,
		})
	}

	actual, _ := shapeCache.LoadOrStore(st, shape)
	return actual.(*Shape), nil
}

// checkGoType validates that values of t can be stored in a Go field of type gt.
func checkGoType(t *red.Type, gt reflect.Type, path []string) error {
	var valid bool

	switch t.Kind {
	case red.KindBool:
		valid = gt.Kind() == reflect.Bool
	case red.KindInt8:
		valid = gt.Kind() == reflect.Int8
	case red.KindUint8:
		valid = gt.Kind() == reflect.Uint8
	case red.KindInt16:
		valid = gt.Kind() == reflect.Int16
	case red.KindUint16:
		valid = gt.Kind() == reflect.Uint16
	case red.KindInt32:
		valid = gt.Kind() == reflect.Int32
	case red.KindUint32:
		valid = gt.Kind() == reflect.Uint32
	case red.KindInt64:
		valid = gt.Kind() == reflect.Int64
	case red.KindUint64:
		valid = gt.Kind() == reflect.Uint64
	case red.KindFloat:
		valid = gt.Kind() == reflect.Float32
	case red.KindDouble:
		valid = gt.Kind() == reflect.Float64
	case red.KindString:
		valid = gt.Kind() == reflect.String && gt != cnameType
	case red.KindCName:
		valid = gt == cnameType
	case red.KindCRUID:
		valid = gt == cruidType
	case red.KindTweakDBID:
		valid = gt == tweakType
	case red.KindHandle:
		valid = gt == handleType
	case red.KindWeakHandle:
		valid = gt == weakType
	case red.KindResourceRef, red.KindResourceAsyncRef:
		valid = gt == resourceType
	case red.KindArray:
		if gt.Kind() != reflect.Slice {
			break
		}
		return checkGoType(t.Elem, gt.Elem(), append(path[:len(path):len(path)], "[]"))
	case red.KindClass:
		valid = gt == classType ||
			(gt.Kind() == reflect.Ptr && gt.Elem().Kind() == reflect.Struct && gt.Implements(serializedType))
	}

	if !valid {
		return errors.TypeMismatch(errors.PhaseCompile, path, gt.String(), t.Name)
	}
	return nil
}
