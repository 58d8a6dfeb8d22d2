package codec

import (
	"fmt"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/internal/binary"
	"github.com/wippyai/redpkg/red"
)

// Import descriptor: offset:23 size:8 sync:1.
const (
	importOffsetBits = 23
	importOffsetMask = 1<<importOffsetBits - 1
	importSizeMask   = 0xff
	importSyncBit    = 1 << 31
)

// Name descriptor: offset:24 size:8. Size counts the NUL terminator.
const (
	nameOffsetBits = 24
	nameOffsetMask = 1<<nameOffsetBits - 1
	nameSizeMask   = 0xff
)

const (
	importDescSize = 4
	nameDescSize   = 4
	chunkDescSize  = 8
	fieldDescSize  = 8
)

// header is the fixed prefix plus the root identifier section.
type header struct {
	roots      []red.CRUID
	components uint32
	refDesc    uint32
	refData    uint32
	nameDesc   uint32
	nameData   uint32
	chunkDesc  uint32
	chunkData  uint32
	version    uint16
	sections   uint16
	cruidIndex int16
}

func parseHeader(c *binary.Cursor, opts Options) (header, error) {
	var h header
	var err error

	if h.version, err = c.U16(); err != nil {
		return h, truncated(errors.PhaseHeader, nil, c, err)
	}
	lo, hi := opts.versions()
	if h.version < lo || h.version > hi {
		return h, errors.UnsupportedFormat("version %d outside supported range %d..%d", h.version, lo, hi)
	}

	if h.sections, err = c.U16(); err != nil {
		return h, truncated(errors.PhaseHeader, nil, c, err)
	}
	if h.sections != 6 && h.sections != 7 {
		return h, errors.UnsupportedFormat("section count %d, want 6 or 7", h.sections)
	}

	if h.components, err = c.U32(); err != nil {
		return h, truncated(errors.PhaseHeader, nil, c, err)
	}

	offsets := []*uint32{&h.nameDesc, &h.nameData, &h.chunkDesc, &h.chunkData}
	if h.sections == 7 {
		offsets = append([]*uint32{&h.refDesc, &h.refData}, offsets...)
	}
	for _, dst := range offsets {
		if *dst, err = c.U32(); err != nil {
			return h, truncated(errors.PhaseHeader, nil, c, err)
		}
	}

	if h.refDesc != 0 {
		return h, errors.UnsupportedFeature(errors.PhaseHeader,
			fmt.Sprintf("reference pool descriptor at offset %d", h.refDesc))
	}

	var count int
	switch opts.Kind {
	case KindDefault:
		if h.cruidIndex, err = c.I16(); err != nil {
			return h, truncated(errors.PhaseHeader, nil, c, err)
		}
		n, err := c.U16()
		if err != nil {
			return h, truncated(errors.PhaseHeader, nil, c, err)
		}
		count = int(n)
	default:
		n, err := c.U32()
		if err != nil {
			return h, truncated(errors.PhaseHeader, nil, c, err)
		}
		if int64(n)*8 > int64(c.Remaining()) {
			return h, errors.MalformedPool(errors.PhaseHeader, nil,
				fmt.Sprintf("%d root ids exceed remaining %d bytes", n, c.Remaining()), nil)
		}
		count = int(n)
	}

	h.roots = make([]red.CRUID, count)
	for i := range h.roots {
		v, err := c.U64()
		if err != nil {
			return h, truncated(errors.PhaseHeader, nil, c, err)
		}
		h.roots[i] = red.CRUID(v)
	}

	return h, nil
}

func writeHeader(w *binary.Writer, h header, kind SubKind) {
	w.U16(h.version)
	w.U16(h.sections)
	w.U32(h.components)
	if h.sections == 7 {
		w.U32(h.refDesc)
		w.U32(h.refData)
	}
	w.U32(h.nameDesc)
	w.U32(h.nameData)
	w.U32(h.chunkDesc)
	w.U32(h.chunkData)

	if kind == KindDefault {
		w.I16(h.cruidIndex)
		w.U16(uint16(len(h.roots)))
	} else {
		w.U32(uint32(len(h.roots)))
	}
	for _, id := range h.roots {
		w.U64(uint64(id))
	}
}

// truncated reports a short read as a malformed layout.
func truncated(phase errors.Phase, path []string, c *binary.Cursor, err error) error {
	return errors.MalformedPool(phase, path, "unexpected end of data", c.WrapError(string(phase), err))
}
