package codec

import "github.com/wippyai/redpkg/red"

// Package is a decoded container: every chunk in table order, the pools it
// was decoded with and its root identifiers.
//
// Chunks is the sole owner of chunk instances; handles only point into it.
type Package struct {
	roots map[red.Class]red.CRUID
	index map[red.Class]int

	Chunks  []red.Class
	RootIDs []red.CRUID
	Imports []red.Import
	Names   []string

	// Unresolved lists weak handles whose target never materialized, when
	// Options.ReportUnresolvedWeak is set.
	Unresolved []UnresolvedHandle

	Components uint32
	Version    uint16
	Sections   uint16

	// CruidIndex is carried through for the default sub-kind.
	CruidIndex int16

	Kind          SubKind
	ImportsAsHash bool
}

// UnresolvedHandle locates a weak handle left unbound.
type UnresolvedHandle struct {
	Path  []string
	Chunk int
	Index int32
}

// Root returns the root id of chunk i. Scriptable-system packages pair no
// roots with chunks.
func (p *Package) Root(i int) (red.CRUID, bool) {
	if !p.Kind.pairsRoots() {
		return 0, false
	}
	if i < 0 || i >= len(p.Chunks) || len(p.RootIDs) != len(p.Chunks) {
		return 0, false
	}
	return p.RootIDs[i], true
}

// RootOf returns the root id paired with chunk c.
func (p *Package) RootOf(c red.Class) (red.CRUID, bool) {
	if !p.Kind.pairsRoots() {
		return 0, false
	}
	if p.roots != nil {
		id, ok := p.roots[c]
		return id, ok
	}
	return p.Root(p.IndexOf(c))
}

// IndexOf returns the table index of c, or -1.
func (p *Package) IndexOf(c red.Class) int {
	if c == nil {
		return -1
	}
	if p.index != nil {
		if i, ok := p.index[c]; ok {
			return i
		}
		return -1
	}
	for i, chunk := range p.Chunks {
		if chunk == c {
			return i
		}
	}
	return -1
}

// Import returns the import ref points at.
func (p *Package) Import(ref *red.ResourceRef) (red.Import, bool) {
	if ref == nil || ref.Index < 0 || int(ref.Index) >= len(p.Imports) {
		return red.Import{}, false
	}
	return p.Imports[ref.Index], true
}
