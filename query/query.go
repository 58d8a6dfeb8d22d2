package query

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/dump"
	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/registry"
)

// Filter is a compiled chunk predicate. It is safe for concurrent use.
type Filter struct {
	program *exprvm.Program
	source  string
}

// Compile parses src into a Filter.
func Compile(src string) (*Filter, error) {
	if src == "" {
		return nil, errors.InvalidInput(errors.PhaseQuery, "expression must not be empty")
	}
	program, err := exprlang.Compile(src,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, errors.New(errors.PhaseQuery, errors.KindInvalidInput).
			Value(src).
			Cause(err).
			Detail("compile expression").
			Build()
	}
	return &Filter{program: program, source: src}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates f against chunk i of pkg.
func (f *Filter) Match(pkg *codec.Package, reg *registry.Registry, i int) (bool, error) {
	if i < 0 || i >= len(pkg.Chunks) {
		return false, errors.OutOfBounds(errors.PhaseQuery, nil, i, len(pkg.Chunks))
	}
	env, err := Env(pkg, reg, i)
	if err != nil {
		return false, err
	}
	out, err := exprlang.Run(f.program, env)
	if err != nil {
		return false, errors.New(errors.PhaseQuery, errors.KindInvalidInput).
			Path(fmt.Sprintf("[%d]", i)).
			Value(f.source).
			Cause(err).
			Detail("evaluate expression").
			Build()
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, errors.New(errors.PhaseQuery, errors.KindTypeMismatch).
			Value(f.source).
			GoType(fmt.Sprintf("%T", v)).
			Detail("expression must evaluate to bool").
			Build()
	}
}

// Select returns the indices of the chunks f matches, in table order.
func (f *Filter) Select(pkg *codec.Package, reg *registry.Registry) ([]int, error) {
	var out []int
	for i := range pkg.Chunks {
		ok, err := f.Match(pkg, reg, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// Env returns the evaluation environment of chunk i.
func Env(pkg *codec.Package, reg *registry.Registry, i int) (map[string]any, error) {
	cd, err := dump.Chunk(pkg, reg, i)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(cd.Fields))
	for _, fd := range cd.Fields {
		if _, dup := fields[fd.Name]; !dup {
			fields[fd.Name] = fd.Value
		}
	}
	var root uint64
	if cd.Root != nil {
		root = *cd.Root
	}
	return map[string]any{
		"index":   cd.Index,
		"class":   cd.Type,
		"dynamic": cd.Dynamic,
		"root":    root,
		"hasRoot": cd.Root != nil,
		"fields":  fields,
	}, nil
}
