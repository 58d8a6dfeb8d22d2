package codec

import (
	"encoding/binary"
	"math"
)

var le = binary.LittleEndian

// rawHeader holds the offsets a fixture computed; tweak hooks may corrupt
// them before serialization.
type rawHeader struct {
	components uint32
	refDesc    uint32
	refData    uint32
	nameDesc   uint32
	nameData   uint32
	chunkDesc  uint32
	chunkData  uint32
	version    uint16
	sections   uint16
}

type rawImport struct {
	data []byte
	size int // -1 uses len(data)
	sync bool
}

type rawChunk struct {
	body     []byte
	typeName uint32
}

// pkgFixture lays out a package by hand, independent of the encoder.
type pkgFixture struct {
	tweak      func(*rawHeader)
	roots      []uint64
	imports    []rawImport
	names      []string
	chunks     []rawChunk
	trailing   []byte
	version    uint16
	sections   uint16
	kind       SubKind
	cruidIndex int16
}

func (f pkgFixture) build() []byte {
	h := rawHeader{version: f.version, sections: f.sections, components: 3}
	if h.version == 0 {
		h.version = 4
	}
	if h.sections == 0 {
		h.sections = 7
	}

	var pools []byte
	var importDescs, importData []byte
	if h.sections == 7 {
		h.refData = uint32(4 * len(f.imports))
		next := h.refData
		for _, imp := range f.imports {
			size := imp.size
			if size < 0 {
				size = len(imp.data)
			}
			desc := next | uint32(size)<<23
			if imp.sync {
				desc |= 1 << 31
			}
			importDescs = le.AppendUint32(importDescs, desc)
			importData = append(importData, imp.data...)
			next += uint32(len(imp.data))
		}
		h.nameDesc = next
	}
	pools = append(pools, importDescs...)
	pools = append(pools, importData...)

	h.nameData = h.nameDesc + uint32(4*len(f.names))
	next := h.nameData
	var nameDescs, nameData []byte
	for _, s := range f.names {
		size := uint32(len(s) + 1)
		nameDescs = le.AppendUint32(nameDescs, next|size<<24)
		nameData = append(nameData, s...)
		nameData = append(nameData, 0)
		next += size
	}
	pools = append(pools, nameDescs...)
	pools = append(pools, nameData...)

	h.chunkDesc = next
	h.chunkData = h.chunkDesc + uint32(8*len(f.chunks))
	next = h.chunkData
	var chunkDescs, chunkData []byte
	for _, c := range f.chunks {
		chunkDescs = le.AppendUint32(chunkDescs, c.typeName)
		chunkDescs = le.AppendUint32(chunkDescs, next)
		chunkData = append(chunkData, c.body...)
		next += uint32(len(c.body))
	}

	if f.tweak != nil {
		f.tweak(&h)
	}

	var out []byte
	out = le.AppendUint16(out, h.version)
	out = le.AppendUint16(out, h.sections)
	out = le.AppendUint32(out, h.components)
	if h.sections == 7 {
		out = le.AppendUint32(out, h.refDesc)
		out = le.AppendUint32(out, h.refData)
	}
	out = le.AppendUint32(out, h.nameDesc)
	out = le.AppendUint32(out, h.nameData)
	out = le.AppendUint32(out, h.chunkDesc)
	out = le.AppendUint32(out, h.chunkData)

	if f.kind == KindDefault {
		out = le.AppendUint16(out, uint16(f.cruidIndex))
		out = le.AppendUint16(out, uint16(len(f.roots)))
	} else {
		out = le.AppendUint32(out, uint32(len(f.roots)))
	}
	for _, id := range f.roots {
		out = le.AppendUint64(out, id)
	}

	out = append(out, pools...)
	out = append(out, chunkDescs...)
	out = append(out, chunkData...)
	return append(out, f.trailing...)
}

// seqRoots returns n distinct root ids.
func seqRoots(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = 1000 + uint64(i)
	}
	return out
}

type rawField struct {
	value []byte
	name  uint16
	typ   uint16
}

// body lays out a class body with contiguous values.
func body(fields ...rawField) []byte {
	out := le.AppendUint16(nil, uint16(len(fields)))
	off := 2 + 8*len(fields)
	for _, f := range fields {
		out = le.AppendUint16(out, f.name)
		out = le.AppendUint16(out, f.typ)
		out = le.AppendUint32(out, uint32(off))
		off += len(f.value)
	}
	for _, f := range fields {
		out = append(out, f.value...)
	}
	return out
}

func field(name, typ uint16, value []byte) rawField {
	return rawField{name: name, typ: typ, value: value}
}

func u8(v uint8) []byte    { return []byte{v} }
func u16(v uint16) []byte  { return le.AppendUint16(nil, v) }
func i16(v int16) []byte   { return le.AppendUint16(nil, uint16(v)) }
func u32(v uint32) []byte  { return le.AppendUint32(nil, v) }
func i32(v int32) []byte   { return le.AppendUint32(nil, uint32(v)) }
func u64(v uint64) []byte  { return le.AppendUint64(nil, v) }
func f32(v float32) []byte { return le.AppendUint32(nil, math.Float32bits(v)) }

func str(s string) []byte {
	return append(u32(uint32(len(s))), s...)
}

func arr(elems ...[]byte) []byte {
	out := u32(uint32(len(elems)))
	for _, e := range elems {
		out = append(out, e...)
	}
	return out
}
