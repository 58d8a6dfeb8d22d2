package codec

import (
	"maps"
	"slices"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

// patch is one handle waiting for its target chunk.
type patch struct {
	strong *red.Handle
	weak   *red.WeakHandle
	path   []string
	chunk  int
}

func (p patch) bind(target red.Class) {
	if p.strong != nil {
		p.strong.Target = target
		return
	}
	p.weak.Target = target
}

// handleQueue holds patches keyed by the chunk index they wait for.
type handleQueue struct {
	pending map[int32][]patch
	size    int
}

func (q *handleQueue) push(target int32, p patch) {
	if q.pending == nil {
		q.pending = make(map[int32][]patch)
	}
	q.pending[target] = append(q.pending[target], p)
	q.size++
}

func (q *handleQueue) len() int {
	return q.size
}

// drain binds every patch whose target exists in chunks. A strong handle
// with no target fails; weak ones stay unbound and are returned when report
// is set. Targets are visited in ascending order.
func (q *handleQueue) drain(chunks []red.Class, report bool) ([]UnresolvedHandle, error) {
	var unresolved []UnresolvedHandle

	for _, target := range slices.Sorted(maps.Keys(q.pending)) {
		patches := q.pending[target]
		if target >= 0 && int(target) < len(chunks) {
			for _, p := range patches {
				p.bind(chunks[target])
			}
			continue
		}
		for _, p := range patches {
			if p.strong != nil {
				return nil, errors.UnresolvedReference(errors.PhaseResolve, p.path, target, len(chunks))
			}
			if report {
				unresolved = append(unresolved, UnresolvedHandle{
					Path:  p.path,
					Chunk: p.chunk,
					Index: target,
				})
			}
		}
	}

	q.pending = nil
	q.size = 0
	return unresolved, nil
}
