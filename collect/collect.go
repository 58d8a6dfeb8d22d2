package collect

import (
	"io"
	"slices"
	"sync"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/internal/serial"
	"github.com/wippyai/redpkg/red"
)

// Sink receives pool entries as the decoder reads them.
type Sink interface {
	AddImport(path string)
	AddImportHash(hash uint64)
	AddName(name string)
}

// Resolver maps a depot path hash back to its path.
type Resolver interface {
	ResolveHash(hash uint64) (string, bool)
}

// Data is a point-in-time copy of a collection.
type Data struct {
	Imports      []string `cbor:"imports" json:"imports"`
	ImportHashes []uint64 `cbor:"import_hashes" json:"import_hashes"`
	Names        []string `cbor:"names" json:"names"`
}

// Collection is the default Sink. Hashes the resolver knows are recorded
// as paths; the rest are kept raw.
type Collection struct {
	resolver Resolver
	data     Data
	mu       sync.Mutex
}

// New creates an empty collection. resolver may be nil.
func New(resolver Resolver) *Collection {
	return &Collection{resolver: resolver}
}

func (c *Collection) AddImport(path string) {
	c.mu.Lock()
	c.data.Imports = append(c.data.Imports, path)
	c.mu.Unlock()
}

func (c *Collection) AddImportHash(hash uint64) {
	if c.resolver != nil {
		if path, ok := c.resolver.ResolveHash(hash); ok {
			c.AddImport(path)
			return
		}
	}
	c.mu.Lock()
	c.data.ImportHashes = append(c.data.ImportHashes, hash)
	c.mu.Unlock()
}

func (c *Collection) AddName(name string) {
	c.mu.Lock()
	c.data.Names = append(c.data.Names, name)
	c.mu.Unlock()
}

// Snapshot returns a copy of everything collected so far, in arrival order.
func (c *Collection) Snapshot() Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Data{
		Imports:      slices.Clone(c.data.Imports),
		ImportHashes: slices.Clone(c.data.ImportHashes),
		Names:        slices.Clone(c.data.Names),
	}
}

// Reset discards everything collected.
func (c *Collection) Reset() {
	c.mu.Lock()
	c.data = Data{}
	c.mu.Unlock()
}

// WriteCBOR writes the deduplicated, sorted collection as deterministic CBOR.
func (c *Collection) WriteCBOR(w io.Writer) error {
	return serial.NewEncoder(w).Encode(c.Snapshot().Unique())
}

// ReadCBOR reads a collection written by WriteCBOR.
func ReadCBOR(r io.Reader) (Data, error) {
	var d Data
	if err := serial.NewDecoder(r).Decode(&d); err != nil {
		return Data{}, errors.Load("decode collection", err)
	}
	return d, nil
}

// Unique returns d with every list sorted and deduplicated.
func (d Data) Unique() Data {
	return Data{
		Imports:      uniq(d.Imports),
		ImportHashes: uniq(d.ImportHashes),
		Names:        uniq(d.Names),
	}
}

func uniq[T string | uint64](in []T) []T {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// PathTable is a Resolver over a fixed set of known depot paths.
type PathTable struct {
	paths map[uint64]string
	mu    sync.RWMutex
}

// NewPathTable creates a table holding paths.
func NewPathTable(paths ...string) *PathTable {
	t := &PathTable{paths: make(map[uint64]string, len(paths))}
	for _, p := range paths {
		t.Add(p)
	}
	return t
}

// Add records path and returns its hash.
func (t *PathTable) Add(path string) uint64 {
	h := red.HashPath(path)
	t.mu.Lock()
	t.paths[h] = path
	t.mu.Unlock()
	return h
}

// Merge adds every import path of d.
func (t *PathTable) Merge(d Data) {
	for _, p := range d.Imports {
		t.Add(p)
	}
}

func (t *PathTable) ResolveHash(hash uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.paths[hash]
	return p, ok
}

func (t *PathTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paths)
}
