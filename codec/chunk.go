package codec

import (
	"fmt"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/red"
)

type chunkDescriptor struct {
	typeName uint32
	offset   uint32
}

// readChunks decodes every chunk in ascending index order. Each instance is
// appended to the chunk table before its fields are read, so handles to
// itself or to earlier chunks bind immediately.
func (d *decoder) readChunks() error {
	h := d.hdr
	if h.chunkDesc != d.poolEnd {
		return errors.MalformedPool(errors.PhaseChunk, nil,
			fmt.Sprintf("chunk table at offset %d, want %d", h.chunkDesc, d.poolEnd), nil)
	}

	count, err := tableLen(h.chunkDesc, h.chunkData, chunkDescSize, "chunk")
	if err != nil {
		return err
	}
	c, err := d.at(errors.PhaseChunk, nil, h.chunkDesc)
	if err != nil {
		return err
	}
	if count*chunkDescSize > c.Remaining() {
		return errors.MalformedPool(errors.PhaseChunk, nil,
			fmt.Sprintf("%d chunk descriptors exceed data", count), nil)
	}

	descs := make([]chunkDescriptor, count)
	for i := range descs {
		if descs[i].typeName, err = c.U32(); err != nil {
			return truncated(errors.PhaseChunk, nil, &c, err)
		}
		if descs[i].offset, err = c.U32(); err != nil {
			return truncated(errors.PhaseChunk, nil, &c, err)
		}
	}

	d.pkg.Chunks = make([]red.Class, 0, count)
	next := int64(h.chunkData)
	for i, cd := range descs {
		if err := d.ctx.Err(); err != nil {
			return canceled(errors.PhaseChunk, err)
		}
		d.chunk = i
		path := []string{fmt.Sprintf("chunks[%d]", i)}

		if int64(cd.offset) != next {
			return errors.MalformedPool(errors.PhaseChunk, path,
				fmt.Sprintf("chunk data at offset %d, want %d", cd.offset, next), nil)
		}
		if int64(cd.typeName) >= int64(len(d.pkg.Names)) {
			return errors.MalformedPool(errors.PhaseChunk, path,
				fmt.Sprintf("type name index %d out of range", cd.typeName),
				errors.OutOfBounds(errors.PhaseChunk, path, int(cd.typeName), len(d.pkg.Names)))
		}
		typeName := d.pkg.Names[cd.typeName]
		t, err := d.types.parse(typeName)
		if err != nil || t.Kind != red.KindClass {
			return errors.New(errors.PhaseChunk, errors.KindMalformedPool).
				Path(path...).
				RedType(typeName).
				Detail("chunk type is not a class name").
				Cause(err).
				Build()
		}

		desc := d.resolve(typeName)
		inst := desc.New()
		d.pkg.Chunks = append(d.pkg.Chunks, inst)

		body, err := d.at(errors.PhaseChunk, path, cd.offset)
		if err != nil {
			return err
		}
		end, err := d.readBody(body, desc, inst, path)
		if err != nil {
			return err
		}
		next = int64(end - d.base)
	}

	if rest := int64(len(d.data)-d.base) - next; rest != 0 {
		return errors.MalformedPool(errors.PhaseChunk, nil,
			fmt.Sprintf("%d bytes after the last chunk", rest), nil)
	}
	return nil
}
