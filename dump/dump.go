package dump

import (
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
)

// Document is a plain snapshot of a package.
type Document struct {
	Kind       string       `json:"kind" cbor:"kind"`
	Imports    []ImportDoc  `json:"imports" cbor:"imports"`
	Names      []string     `json:"names" cbor:"names"`
	Chunks     []ChunkDoc   `json:"chunks" cbor:"chunks"`
	Unresolved []Unresolved `json:"unresolved,omitempty" cbor:"unresolved,omitempty"`
	Components uint32       `json:"components" cbor:"components"`
	Version    uint16       `json:"version" cbor:"version"`
	Sections   uint16       `json:"sections" cbor:"sections"`
	CruidIndex int16        `json:"cruid_index" cbor:"cruid_index"`
}

type ImportDoc struct {
	Path string `json:"path,omitempty" cbor:"path,omitempty"`
	Hash uint64 `json:"hash" cbor:"hash"`
	Sync bool   `json:"sync,omitempty" cbor:"sync,omitempty"`
}

type ChunkDoc struct {
	Root    *uint64    `json:"root,omitempty" cbor:"root,omitempty"`
	Type    string     `json:"type" cbor:"type"`
	Fields  []FieldDoc `json:"fields" cbor:"fields"`
	Index   int        `json:"index" cbor:"index"`
	Dynamic bool       `json:"dynamic,omitempty" cbor:"dynamic,omitempty"`
}

type FieldDoc struct {
	Value any    `json:"value" cbor:"value"`
	Name  string `json:"name" cbor:"name"`
	Type  string `json:"type" cbor:"type"`
}

type Unresolved struct {
	Path  []string `json:"path" cbor:"path"`
	Chunk int      `json:"chunk" cbor:"chunk"`
	Index int32    `json:"index" cbor:"index"`
}

// Snapshot converts pkg into a Document. reg must be the registry the
// package was decoded with.
func Snapshot(pkg *codec.Package, reg *registry.Registry) (*Document, error) {
	doc := &Document{
		Kind:       pkg.Kind.String(),
		Names:      pkg.Names,
		Components: pkg.Components,
		Version:    pkg.Version,
		Sections:   pkg.Sections,
		CruidIndex: pkg.CruidIndex,
		Imports:    make([]ImportDoc, len(pkg.Imports)),
		Chunks:     make([]ChunkDoc, len(pkg.Chunks)),
	}

	for i, imp := range pkg.Imports {
		doc.Imports[i] = ImportDoc{Path: imp.DepotPath, Hash: imp.ID(), Sync: imp.Sync}
	}

	for i := range pkg.Chunks {
		cd, err := Chunk(pkg, reg, i)
		if err != nil {
			return nil, err
		}
		doc.Chunks[i] = cd
	}

	for _, u := range pkg.Unresolved {
		doc.Unresolved = append(doc.Unresolved, Unresolved{Path: u.Path, Chunk: u.Chunk, Index: u.Index})
	}
	return doc, nil
}

// Chunk converts chunk i of pkg.
func Chunk(pkg *codec.Package, reg *registry.Registry, i int) (ChunkDoc, error) {
	c := pkg.Chunks[i]
	fields, err := reg.Fields(c)
	if err != nil {
		return ChunkDoc{}, err
	}

	_, dynamic := c.(*red.Dynamic)
	cd := ChunkDoc{
		Index:   i,
		Type:    c.ClassName(),
		Dynamic: dynamic,
		Fields:  make([]FieldDoc, len(fields)),
	}
	if id, ok := pkg.Root(i); ok {
		v := uint64(id)
		cd.Root = &v
	}

	for j, f := range fields {
		v, err := Plain(pkg, reg, f.Value)
		if err != nil {
			return ChunkDoc{}, err
		}
		cd.Fields[j] = FieldDoc{Name: f.Name, Type: f.Type, Value: v}
	}
	return cd, nil
}

// Plain converts a decoded field value into maps, slices and scalars.
func Plain(pkg *codec.Package, reg *registry.Registry, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *red.Handle:
		if x == nil {
			return nil, nil
		}
		return handleDoc(pkg, x.Target, x.Index, false), nil
	case *red.WeakHandle:
		if x == nil {
			return nil, nil
		}
		return handleDoc(pkg, x.Target, x.Index, true), nil
	case *red.ResourceRef:
		if x == nil {
			return nil, nil
		}
		out := map[string]any{"import": int(x.Index)}
		if imp, ok := pkg.Import(x); ok {
			if imp.DepotPath != "" {
				out["path"] = imp.DepotPath
			} else {
				out["hash"] = imp.Hash
			}
		}
		return out, nil
	case float32:
		return plainFloat(float64(x), x, 32), nil
	case float64:
		return plainFloat(x, x, 64), nil
	case red.CName:
		return string(x), nil
	case red.CRUID:
		return uint64(x), nil
	case red.TweakDBID:
		return uint64(x), nil
	case red.Class:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		fields, err := reg.Fields(x)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields)+1)
		out["$type"] = x.ClassName()
		for _, f := range fields {
			if out[f.Name], err = Plain(pkg, reg, f.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			elem, err := Plain(pkg, reg, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	}
	return v, nil
}

// plainFloat spells NaN and infinities as strings, which JSON cannot carry
// as numbers.
func plainFloat(f float64, orig any, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return orig
}

func handleDoc(pkg *codec.Package, target red.Class, index int32, weak bool) map[string]any {
	if target != nil {
		index = int32(pkg.IndexOf(target))
	}
	return map[string]any{
		"handle": int(index),
		"weak":   weak,
		"bound":  target != nil,
	}
}
