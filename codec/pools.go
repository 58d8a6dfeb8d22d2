package codec

import (
	"fmt"
	"unicode/utf8"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

// readPools decodes the import pool (7-section layout only) and the name
// pool. Pools must be laid out back to back in descriptor order.
func (d *decoder) readPools() error {
	end, err := d.readImports()
	if err != nil {
		return err
	}
	end, err = d.readNames(end)
	if err != nil {
		return err
	}
	d.poolEnd = end
	return nil
}

func (d *decoder) readImports() (uint32, error) {
	h := d.hdr
	if h.sections != 7 {
		return 0, nil
	}

	count, err := tableLen(h.refDesc, h.refData, importDescSize, "import")
	if err != nil {
		return 0, err
	}
	c, err := d.at(errors.PhasePool, nil, h.refDesc)
	if err != nil {
		return 0, err
	}
	if count*importDescSize > c.Remaining() {
		return 0, errors.MalformedPool(errors.PhasePool, nil,
			fmt.Sprintf("%d import descriptors exceed data", count), nil)
	}

	imports := make([]red.Import, count)
	next := h.refData
	for i := range imports {
		path := []string{fmt.Sprintf("imports[%d]", i)}
		desc, err := c.U32()
		if err != nil {
			return 0, truncated(errors.PhasePool, path, &c, err)
		}
		off := desc & importOffsetMask
		size := desc >> importOffsetBits & importSizeMask
		sync := desc&importSyncBit != 0

		if off != next {
			return 0, errors.MalformedPool(errors.PhasePool, path,
				fmt.Sprintf("import data at offset %d, want %d", off, next), nil)
		}
		ec, err := d.at(errors.PhasePool, path, off)
		if err != nil {
			return 0, err
		}

		if d.opts.ImportsAsHash {
			if size != 8 {
				return 0, errors.MalformedPool(errors.PhasePool, path,
					fmt.Sprintf("hash import declares %d bytes, want 8", size), nil)
			}
			hash, err := ec.U64()
			if err != nil {
				return 0, truncated(errors.PhasePool, path, &ec, err)
			}
			imports[i] = red.Import{Hash: hash, Sync: sync}
			if d.sink != nil {
				d.sink.AddImportHash(hash)
			}
		} else {
			b, err := ec.Bytes(int(size))
			if err != nil {
				return 0, truncated(errors.PhasePool, path, &ec, err)
			}
			if !utf8.Valid(b) {
				return 0, errors.MalformedPool(errors.PhasePool, path, "import path is not UTF-8",
					errors.InvalidUTF8(errors.PhasePool, path, b))
			}
			imports[i] = red.Import{DepotPath: string(b), Sync: sync}
			if d.sink != nil {
				d.sink.AddImport(imports[i].DepotPath)
			}
		}
		next += size
	}

	d.pkg.Imports = imports
	return next, nil
}

func (d *decoder) readNames(start uint32) (uint32, error) {
	h := d.hdr
	if h.nameDesc != start {
		return 0, errors.MalformedPool(errors.PhasePool, nil,
			fmt.Sprintf("name pool at offset %d, want %d", h.nameDesc, start), nil)
	}

	count, err := tableLen(h.nameDesc, h.nameData, nameDescSize, "name")
	if err != nil {
		return 0, err
	}
	c, err := d.at(errors.PhasePool, nil, h.nameDesc)
	if err != nil {
		return 0, err
	}
	if count*nameDescSize > c.Remaining() {
		return 0, errors.MalformedPool(errors.PhasePool, nil,
			fmt.Sprintf("%d name descriptors exceed data", count), nil)
	}

	names := make([]string, count)
	seen := make(map[string]int, count)
	next := h.nameData
	for i := range names {
		path := []string{fmt.Sprintf("names[%d]", i)}
		desc, err := c.U32()
		if err != nil {
			return 0, truncated(errors.PhasePool, path, &c, err)
		}
		off := desc & nameOffsetMask
		size := desc >> nameOffsetBits & nameSizeMask

		if off != next {
			return 0, errors.MalformedPool(errors.PhasePool, path,
				fmt.Sprintf("name data at offset %d, want %d", off, next), nil)
		}
		ec, err := d.at(errors.PhasePool, path, off)
		if err != nil {
			return 0, err
		}
		s, err := ec.CString()
		if err != nil {
			return 0, truncated(errors.PhasePool, path, &ec, err)
		}
		if uint32(len(s))+1 != size {
			return 0, errors.MalformedPool(errors.PhasePool, path,
				fmt.Sprintf("name %q declares size %d", s, size), nil)
		}
		if !utf8.ValidString(s) {
			return 0, errors.MalformedPool(errors.PhasePool, path, "name is not UTF-8",
				errors.InvalidUTF8(errors.PhasePool, path, []byte(s)))
		}
		if first, dup := seen[s]; dup {
			return 0, errors.MalformedPool(errors.PhasePool, path,
				fmt.Sprintf("name %q already interned at %d", s, first), nil)
		}
		seen[s] = i
		names[i] = s
		if d.sink != nil {
			d.sink.AddName(s)
		}
		next += size
	}

	d.pkg.Names = names
	return next, nil
}

// tableLen returns the entry count of a descriptor table spanning desc..data.
func tableLen(desc, data uint32, stride int, what string) (int, error) {
	span := int64(data) - int64(desc)
	if span < 0 || span%int64(stride) != 0 {
		return 0, errors.MalformedPool(errors.PhasePool, nil,
			fmt.Sprintf("%s table spans %d..%d, not a multiple of %d", what, desc, data, stride), nil)
	}
	return int(span) / stride, nil
}

// name returns the interned string at index i.
func (d *decoder) name(i int, path []string) (string, error) {
	if i < 0 || i >= len(d.pkg.Names) {
		return "", errors.MalformedPool(errors.PhaseChunk, path,
			fmt.Sprintf("name index %d out of range (pool length %d)", i, len(d.pkg.Names)),
			errors.OutOfBounds(errors.PhaseChunk, path, i, len(d.pkg.Names)))
	}
	return d.pkg.Names[i], nil
}
