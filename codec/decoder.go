package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/wippyai/redpkg/collect"
	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/internal/binary"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
	"go.uber.org/zap"
)

// state is a decode stage. Stages run strictly in order.
type state uint8

const (
	stateInit state = iota
	stateHeaderRead
	statePoolsRead
	stateChunksDecoded
	stateHandlesResolved
	stateAssembled
)

var stateNames = [...]string{
	stateInit:            "init",
	stateHeaderRead:      "header-read",
	statePoolsRead:       "pools-read",
	stateChunksDecoded:   "chunks-decoded",
	stateHandlesResolved: "handles-resolved",
	stateAssembled:       "assembled",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// decoder owns everything one decode touches except the registry.
type decoder struct {
	ctx     context.Context
	reg     *registry.Registry
	sink    collect.Sink
	pkg     *Package
	data    []byte
	queue   handleQueue
	types   typeCache
	dynamic map[string]*registry.TypeDescriptor
	opts    Options
	hdr     header
	base    int
	chunk   int
	depth   int
	poolEnd uint32
	state   state
}

// Decode decodes a package blob. reg may be nil, in which case every class
// decodes as *red.Dynamic. On error no package is returned.
func Decode(data []byte, reg *registry.Registry, opts Options) (*Package, error) {
	return DecodeContext(context.Background(), data, reg, opts)
}

// DecodeContext is Decode with cancellation, checked between stages and
// between chunks.
func DecodeContext(ctx context.Context, data []byte, reg *registry.Registry, opts Options) (*Package, error) {
	if err := opts.validate(errors.PhaseHeader); err != nil {
		return nil, err
	}
	d := &decoder{
		ctx:  ctx,
		reg:  reg,
		sink: opts.sink(),
		opts: opts,
		data: data,
		pkg: &Package{
			Kind:          opts.Kind,
			ImportsAsHash: opts.ImportsAsHash,
		},
	}
	return d.run()
}

// DecodeReader reads r to the end and decodes the result.
func DecodeReader(ctx context.Context, r io.Reader, reg *registry.Registry, opts Options) (*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Load("read package", err)
	}
	return DecodeContext(ctx, data, reg, opts)
}

type stage struct {
	run   func() error
	phase errors.Phase
	from  state
	to    state
}

func (d *decoder) run() (*Package, error) {
	stages := []stage{
		{from: stateInit, to: stateHeaderRead, phase: errors.PhaseHeader, run: d.readHeader},
		{from: stateHeaderRead, to: statePoolsRead, phase: errors.PhasePool, run: d.readPools},
		{from: statePoolsRead, to: stateChunksDecoded, phase: errors.PhaseChunk, run: d.readChunks},
		{from: stateChunksDecoded, to: stateHandlesResolved, phase: errors.PhaseResolve, run: d.resolveHandles},
		{from: stateHandlesResolved, to: stateAssembled, phase: errors.PhaseAssemble, run: d.assemble},
	}

	for _, s := range stages {
		if d.state != s.from {
			return nil, errors.New(s.phase, errors.KindInvalidInput).
				Detail("decoder is %s, %s requires %s", d.state, s.to, s.from).
				Build()
		}
		if err := d.ctx.Err(); err != nil {
			return nil, canceled(s.phase, err)
		}
		if err := s.run(); err != nil {
			return nil, err
		}
		d.state = s.to
		Logger().Debug("decode stage complete", zap.Stringer("state", d.state))
	}

	return d.pkg, nil
}

func (d *decoder) readHeader() error {
	c := binary.NewCursor(d.data)
	h, err := parseHeader(&c, d.opts)
	if err != nil {
		return err
	}
	d.hdr = h
	d.base = c.Pos()

	d.pkg.Version = h.version
	d.pkg.Sections = h.sections
	d.pkg.Components = h.components
	d.pkg.CruidIndex = h.cruidIndex
	d.pkg.RootIDs = h.roots

	Logger().Debug("header read",
		zap.Uint16("version", h.version),
		zap.Uint16("sections", h.sections),
		zap.Int("roots", len(h.roots)),
		zap.Int("base", d.base))
	return nil
}

func (d *decoder) resolveHandles() error {
	pending := d.queue.len()
	unresolved, err := d.queue.drain(d.pkg.Chunks, d.opts.ReportUnresolvedWeak)
	if err != nil {
		return err
	}
	d.pkg.Unresolved = unresolved
	if pending > 0 {
		Logger().Debug("forward handles resolved",
			zap.Int("pending", pending),
			zap.Int("unresolved_weak", len(unresolved)))
	}
	return nil
}

func (d *decoder) assemble() error {
	pkg := d.pkg

	pkg.index = make(map[red.Class]int, len(pkg.Chunks))
	for i, c := range pkg.Chunks {
		pkg.index[c] = i
	}

	if !d.opts.Kind.pairsRoots() {
		return nil
	}
	if len(pkg.RootIDs) != len(pkg.Chunks) {
		return errors.MalformedPool(errors.PhaseAssemble, nil,
			fmt.Sprintf("%d root ids for %d chunks", len(pkg.RootIDs), len(pkg.Chunks)), nil)
	}
	pkg.roots = make(map[red.Class]red.CRUID, len(pkg.Chunks))
	seen := make(map[red.CRUID]int, len(pkg.RootIDs))
	for i, id := range pkg.RootIDs {
		if first, dup := seen[id]; dup {
			return errors.MalformedPool(errors.PhaseAssemble, nil,
				fmt.Sprintf("root id %d repeated at %d and %d", id, first, i), nil)
		}
		seen[id] = i
		pkg.roots[pkg.Chunks[i]] = id
	}
	return nil
}

// at returns a cursor at base+off.
func (d *decoder) at(phase errors.Phase, path []string, off uint32) (binary.Cursor, error) {
	c, err := binary.NewCursor(d.data).Seek(d.base + int(off))
	if err != nil {
		return c, errors.MalformedPool(phase, path, fmt.Sprintf("offset %d outside data", off), err)
	}
	return c, nil
}

func canceled(phase errors.Phase, err error) error {
	return errors.Wrap(phase, errors.KindCanceled, err, "decode canceled")
}
