package red

import (
	"hash/fnv"
	"strings"
)

// CName is an interned name, stored as an index into the package name pool.
type CName string

// CRUID is a stable 64-bit root identifier.
type CRUID uint64

// TweakDBID is a 64-bit tweak database record id.
type TweakDBID uint64

// Handle is a strong reference to a chunk by table index.
// A nil *Handle serializes as the null index -1.
type Handle struct {
	Target Class
	Index  int32
}

// Bound reports whether the handle points at a constructed chunk.
func (h *Handle) Bound() bool {
	return h != nil && h.Target != nil
}

// WeakHandle is a back reference to a chunk by table index. Unlike Handle,
// its target is allowed to never materialize.
type WeakHandle struct {
	Target Class
	Index  int32
}

// Bound reports whether the handle points at a constructed chunk.
func (h *WeakHandle) Bound() bool {
	return h != nil && h.Target != nil
}

// ResourceRef points at an entry of the package import list.
// A nil *ResourceRef serializes as the "no resource" index -1.
type ResourceRef struct {
	Index int16
}

// Import is an external resource reference carried by a package.
// Exactly one of DepotPath and Hash is meaningful, depending on whether the
// package was decoded with hash-encoded imports.
type Import struct {
	DepotPath string
	Hash      uint64
	Sync      bool
}

// ID returns the 64-bit depot path hash, computing it for path-form imports.
func (i Import) ID() uint64 {
	if i.DepotPath == "" {
		return i.Hash
	}
	return HashPath(i.DepotPath)
}

// HashPath returns the FNV-1a 64 hash of a normalized depot path
// (lower case, backslash separators).
func HashPath(path string) uint64 {
	normalized := strings.ToLower(strings.ReplaceAll(path, "/", "\\"))
	h := fnv.New64a()
	h.Write([]byte(normalized))
	return h.Sum64()
}
