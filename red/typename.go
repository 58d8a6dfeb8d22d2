package red

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedType is returned for type names whose wire encoding is unknown.
var ErrUnsupportedType = errors.New("unsupported type name")

// Kind is the wire category of a type name.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat
	KindDouble
	KindCName
	KindString
	KindCRUID
	KindTweakDBID
	KindArray
	KindHandle
	KindWeakHandle
	KindResourceRef
	KindResourceAsyncRef
	KindClass
)

var kindNames = [...]string{
	KindBool:             "Bool",
	KindInt8:             "Int8",
	KindUint8:            "Uint8",
	KindInt16:            "Int16",
	KindUint16:           "Uint16",
	KindInt32:            "Int32",
	KindUint32:           "Uint32",
	KindInt64:            "Int64",
	KindUint64:           "Uint64",
	KindFloat:            "Float",
	KindDouble:           "Double",
	KindCName:            "CName",
	KindString:           "String",
	KindCRUID:            "CRUID",
	KindTweakDBID:        "TweakDBID",
	KindArray:            "array",
	KindHandle:           "handle",
	KindWeakHandle:       "whandle",
	KindResourceRef:      "rRef",
	KindResourceAsyncRef: "raRef",
	KindClass:            "class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var primitives = map[string]Kind{
	"Bool":      KindBool,
	"Int8":      KindInt8,
	"Uint8":     KindUint8,
	"Int16":     KindInt16,
	"Uint16":    KindUint16,
	"Int32":     KindInt32,
	"Uint32":    KindUint32,
	"Int64":     KindInt64,
	"Uint64":    KindUint64,
	"Float":     KindFloat,
	"Double":    KindDouble,
	"CName":     KindCName,
	"String":    KindString,
	"CRUID":     KindCRUID,
	"TweakDBID": KindTweakDBID,
}

var prefixes = map[string]Kind{
	"array":   KindArray,
	"handle":  KindHandle,
	"whandle": KindWeakHandle,
	"rRef":    KindResourceRef,
	"raRef":   KindResourceAsyncRef,
}

// Type is a parsed type name. Types are immutable.
type Type struct {
	Elem  *Type
	Name  string
	Class string
	Kind  Kind
}

// IsReference reports whether values of t are chunk handles.
func (t *Type) IsReference() bool {
	return t.Kind == KindHandle || t.Kind == KindWeakHandle
}

// ParseType parses a type name. Every call returns a new *Type; callers
// that parse repeatedly keep their own cache.
func ParseType(name string) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedType)
	}
	if k, ok := primitives[name]; ok {
		return &Type{Name: name, Kind: k}, nil
	}

	prefix, rest, found := strings.Cut(name, ":")
	if !found {
		return &Type{Name: name, Kind: KindClass, Class: name}, nil
	}

	k, ok := prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	if rest == "" {
		return nil, fmt.Errorf("%w: %q has no element type", ErrUnsupportedType, name)
	}

	if k == KindArray {
		elem, err := ParseType(rest)
		if err != nil {
			return nil, err
		}
		return &Type{Name: name, Kind: k, Elem: elem}, nil
	}

	if strings.Contains(rest, ":") {
		return nil, fmt.Errorf("%w: %q must reference a class", ErrUnsupportedType, name)
	}
	if _, prim := primitives[rest]; prim {
		return nil, fmt.Errorf("%w: %q references primitive %s", ErrUnsupportedType, name, rest)
	}
	return &Type{Name: name, Kind: k, Class: rest}, nil
}
