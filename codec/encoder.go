package codec

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/internal/binary"
	"github.com/wippyai/redpkg/red"
	"github.com/wippyai/redpkg/registry"
	"go.uber.org/zap"
)

// Encode serializes pkg in the canonical layout Decode accepts. opts must
// select the same sub-kind and import form the package is meant to be read
// with.
//
// Names are written in pkg.Names order, followed by any name the chunks use
// that the pool lacks. A zero Version selects the newest supported version;
// a zero Sections selects 7 when there are imports and 6 otherwise.
func Encode(pkg *Package, reg *registry.Registry, opts Options) ([]byte, error) {
	if pkg == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "*codec.Package")
	}
	if err := opts.validate(errors.PhaseEncode); err != nil {
		return nil, err
	}

	e := &encoder{reg: reg, pkg: pkg, opts: opts}
	if err := e.prepare(); err != nil {
		return nil, err
	}
	return e.encode()
}

type encoder struct {
	reg   *registry.Registry
	pkg   *Package
	names *nameTable
	index map[red.Class]int
	opts  Options
	types typeCache
	depth int
}

func (e *encoder) prepare() error {
	pkg := e.pkg

	e.index = make(map[red.Class]int, len(pkg.Chunks))
	for i, c := range pkg.Chunks {
		path := []string{fmt.Sprintf("chunks[%d]", i)}
		if c == nil {
			return errors.NilPointer(errors.PhaseEncode, path, "red.Class")
		}
		if reflect.ValueOf(c).Kind() != reflect.Pointer {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				GoType(reflect.TypeOf(c).String()).
				Detail("chunks must be pointers").
				Build()
		}
		if first, dup := e.index[c]; dup {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("same instance is already chunk %d", first).
				Build()
		}
		e.index[c] = i
	}

	names, err := newNameTable(pkg.Names)
	if err != nil {
		return err
	}
	e.names = names
	return nil
}

func (e *encoder) encode() ([]byte, error) {
	pkg := e.pkg

	h, err := e.header()
	if err != nil {
		return nil, err
	}

	body := binary.NewWriter()
	offsets := make([]int, len(pkg.Chunks))
	typeNames := make([]int, len(pkg.Chunks))
	for i, c := range pkg.Chunks {
		path := []string{fmt.Sprintf("chunks[%d]", i)}
		name := c.ClassName()
		if t, err := e.types.parse(name); err != nil || t.Kind != red.KindClass {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				RedType(name).
				Detail("chunk type is not a class name").
				Cause(err).
				Build()
		}
		typeNames[i] = e.names.intern(name)
		offsets[i] = body.Len()
		if err := e.writeBody(body, c, path); err != nil {
			return nil, err
		}
	}

	imports, err := e.importLayout()
	if err != nil {
		return nil, err
	}
	names, err := e.nameLayout(imports.end)
	if err != nil {
		return nil, err
	}

	h.refData = imports.data
	h.nameDesc = names.desc
	h.nameData = names.data
	h.chunkDesc = names.end
	chunkData := uint64(names.end) + uint64(len(pkg.Chunks))*chunkDescSize
	if chunkData+uint64(body.Len()) > math.MaxUint32 {
		return nil, errors.Overflow(errors.PhaseEncode, nil, chunkData+uint64(body.Len()), "u32 offset")
	}
	h.chunkData = uint32(chunkData)

	w := binary.NewWriter()
	writeHeader(w, h, e.opts.Kind)

	for i, imp := range pkg.Imports {
		desc := imports.offsets[i] | imports.sizes[i]<<importOffsetBits
		if imp.Sync {
			desc |= importSyncBit
		}
		w.U32(desc)
	}
	for _, imp := range pkg.Imports {
		if e.opts.ImportsAsHash {
			w.U64(imp.ID())
		} else {
			w.WriteBytes([]byte(imp.DepotPath))
		}
	}

	for i := range e.names.list {
		w.U32(names.offsets[i] | names.sizes[i]<<nameOffsetBits)
	}
	for _, s := range e.names.list {
		w.CString(s)
	}

	for i := range pkg.Chunks {
		w.U32(uint32(typeNames[i]))
		w.U32(h.chunkData + uint32(offsets[i]))
	}
	w.WriteBytes(body.Bytes())

	Logger().Debug("package encoded",
		zap.Int("chunks", len(pkg.Chunks)),
		zap.Int("names", len(e.names.list)),
		zap.Int("bytes", w.Len()))

	return w.Bytes(), nil
}

func (e *encoder) header() (header, error) {
	pkg := e.pkg
	h := header{
		version:    pkg.Version,
		sections:   pkg.Sections,
		components: pkg.Components,
		roots:      pkg.RootIDs,
	}

	lo, hi := e.opts.versions()
	if h.version == 0 {
		h.version = hi
	}
	if h.version < lo || h.version > hi {
		return h, errors.New(errors.PhaseEncode, errors.KindUnsupportedFormat).
			Detail("version %d outside supported range %d..%d", h.version, lo, hi).
			Build()
	}

	if h.sections == 0 {
		h.sections = 6
		if len(pkg.Imports) > 0 {
			h.sections = 7
		}
	}
	switch {
	case h.sections != 6 && h.sections != 7:
		return h, errors.New(errors.PhaseEncode, errors.KindUnsupportedFormat).
			Detail("section count %d, want 6 or 7", h.sections).
			Build()
	case h.sections == 6 && len(pkg.Imports) > 0:
		return h, errors.UnsupportedFeature(errors.PhaseEncode, "imports require the 7-section layout")
	}

	if e.opts.Kind == KindDefault {
		h.cruidIndex = pkg.CruidIndex
		if len(h.roots) > math.MaxUint16 {
			return h, errors.Overflow(errors.PhaseEncode, nil, len(h.roots), "u16 root count")
		}
	}
	if e.opts.Kind.pairsRoots() {
		if len(h.roots) != len(pkg.Chunks) {
			return h, errors.MalformedPool(errors.PhaseEncode, nil,
				fmt.Sprintf("%d root ids for %d chunks", len(h.roots), len(pkg.Chunks)), nil)
		}
		seen := make(map[red.CRUID]struct{}, len(h.roots))
		for _, id := range h.roots {
			if _, dup := seen[id]; dup {
				return h, errors.MalformedPool(errors.PhaseEncode, nil,
					fmt.Sprintf("root id %d repeated", id), nil)
			}
			seen[id] = struct{}{}
		}
	}
	return h, nil
}

type poolLayout struct {
	offsets []uint32
	sizes   []uint32
	desc    uint32
	data    uint32
	end     uint32
}

// importLayout places the import pool at offset 0.
func (e *encoder) importLayout() (poolLayout, error) {
	imports := e.pkg.Imports
	l := poolLayout{
		offsets: make([]uint32, len(imports)),
		sizes:   make([]uint32, len(imports)),
		data:    uint32(len(imports) * importDescSize),
	}

	next := uint64(l.data)
	for i, imp := range imports {
		path := []string{fmt.Sprintf("imports[%d]", i)}
		size := uint64(8)
		if !e.opts.ImportsAsHash {
			if imp.DepotPath == "" && imp.Hash != 0 {
				return l, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
					Path(path...).
					Detail("import has only a hash; encode with hashed imports").
					Build()
			}
			if !utf8.ValidString(imp.DepotPath) {
				return l, errors.InvalidUTF8(errors.PhaseEncode, path, []byte(imp.DepotPath))
			}
			size = uint64(len(imp.DepotPath))
			if size > importSizeMask {
				return l, errors.Overflow(errors.PhaseEncode, path, size, "8-bit import size")
			}
		}
		if next > importOffsetMask {
			return l, errors.Overflow(errors.PhaseEncode, path, next, "23-bit import offset")
		}
		l.offsets[i] = uint32(next)
		l.sizes[i] = uint32(size)
		next += size
	}
	l.end = uint32(next)
	return l, nil
}

// nameLayout places the name pool directly after the import pool.
func (e *encoder) nameLayout(start uint32) (poolLayout, error) {
	names := e.names.list
	l := poolLayout{
		offsets: make([]uint32, len(names)),
		sizes:   make([]uint32, len(names)),
		desc:    start,
	}

	next := uint64(start) + uint64(len(names))*nameDescSize
	l.data = uint32(next)
	for i, s := range names {
		path := []string{fmt.Sprintf("names[%d]", i)}
		if strings.IndexByte(s, 0) >= 0 {
			return l, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("name %q contains NUL", s).
				Build()
		}
		if !utf8.ValidString(s) {
			return l, errors.InvalidUTF8(errors.PhaseEncode, path, []byte(s))
		}
		size := uint64(len(s)) + 1
		if size > nameSizeMask {
			return l, errors.Overflow(errors.PhaseEncode, path, size, "8-bit name size")
		}
		if next > nameOffsetMask {
			return l, errors.Overflow(errors.PhaseEncode, path, next, "24-bit name offset")
		}
		l.offsets[i] = uint32(next)
		l.sizes[i] = uint32(size)
		next += size
	}
	if next > math.MaxUint32 {
		return l, errors.Overflow(errors.PhaseEncode, nil, next, "u32 offset")
	}
	l.end = uint32(next)
	return l, nil
}

func (e *encoder) writeBody(w *binary.Writer, cls red.Class, path []string) error {
	fields, err := e.reg.Fields(cls)
	if err != nil {
		return err
	}
	if len(fields) > math.MaxUint16 {
		return errors.Overflow(errors.PhaseEncode, path, len(fields), "u16 field count")
	}

	start := w.Len()
	w.U16(uint16(len(fields)))

	slots := make([]int, len(fields))
	types := make([]*red.Type, len(fields))
	for i, f := range fields {
		fieldPath := append(path[:len(path):len(path)], f.Name)
		t, err := e.types.parse(f.Type)
		if err != nil {
			return errors.New(errors.PhaseEncode, errors.KindUnsupportedFeature).
				Path(fieldPath...).
				RedType(f.Type).
				Cause(err).
				Build()
		}
		types[i] = t

		name, err := e.names.short(f.Name, fieldPath)
		if err != nil {
			return err
		}
		typ, err := e.names.short(f.Type, fieldPath)
		if err != nil {
			return err
		}
		w.U16(name)
		w.U16(typ)
		slots[i] = w.Len()
		w.U32(0)
	}

	for i, f := range fields {
		fieldPath := append(path[:len(path):len(path)], f.Name)
		w.PutU32At(slots[i], uint32(w.Len()-start))
		if err := e.writeValue(w, types[i], f.Value, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeValue(w *binary.Writer, t *red.Type, v any, path []string) error {
	rv := reflect.ValueOf(v)
	mismatch := func() error {
		goType := "nil"
		if v != nil {
			goType = reflect.TypeOf(v).String()
		}
		return errors.TypeMismatch(errors.PhaseEncode, path, goType, t.Name)
	}
	is := func(k reflect.Kind) bool {
		return rv.IsValid() && rv.Kind() == k
	}

	switch t.Kind {
	case red.KindBool:
		if !is(reflect.Bool) {
			return mismatch()
		}
		if rv.Bool() {
			w.U8(1)
		} else {
			w.U8(0)
		}
	case red.KindInt8:
		if !is(reflect.Int8) {
			return mismatch()
		}
		w.U8(uint8(rv.Int()))
	case red.KindUint8:
		if !is(reflect.Uint8) {
			return mismatch()
		}
		w.U8(uint8(rv.Uint()))
	case red.KindInt16:
		if !is(reflect.Int16) {
			return mismatch()
		}
		w.I16(int16(rv.Int()))
	case red.KindUint16:
		if !is(reflect.Uint16) {
			return mismatch()
		}
		w.U16(uint16(rv.Uint()))
	case red.KindInt32:
		if !is(reflect.Int32) {
			return mismatch()
		}
		w.I32(int32(rv.Int()))
	case red.KindUint32:
		if !is(reflect.Uint32) {
			return mismatch()
		}
		w.U32(uint32(rv.Uint()))
	case red.KindInt64:
		if !is(reflect.Int64) {
			return mismatch()
		}
		w.I64(rv.Int())
	case red.KindUint64, red.KindCRUID, red.KindTweakDBID:
		if !is(reflect.Uint64) {
			return mismatch()
		}
		w.U64(rv.Uint())
	case red.KindFloat:
		if !is(reflect.Float32) {
			return mismatch()
		}
		// Keep the exact bit pattern when no conversion is needed.
		if f, ok := v.(float32); ok {
			w.F32(f)
		} else {
			w.F32(float32(rv.Float()))
		}
	case red.KindDouble:
		if !is(reflect.Float64) {
			return mismatch()
		}
		w.F64(rv.Float())
	case red.KindCName:
		if !is(reflect.String) {
			return mismatch()
		}
		i, err := e.names.short(rv.String(), path)
		if err != nil {
			return err
		}
		w.U16(i)
	case red.KindString:
		if !is(reflect.String) {
			return mismatch()
		}
		s := rv.String()
		if !utf8.ValidString(s) {
			return errors.InvalidUTF8(errors.PhaseEncode, path, []byte(s))
		}
		if uint64(len(s)) > math.MaxUint32 {
			return errors.Overflow(errors.PhaseEncode, path, len(s), "u32 string length")
		}
		w.U32(uint32(len(s)))
		w.WriteBytes([]byte(s))
	case red.KindArray:
		if err := e.enter(path); err != nil {
			return err
		}
		defer e.leave()
		if !rv.IsValid() {
			w.U32(0)
			return nil
		}
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch()
		}
		n := rv.Len()
		if uint64(n) > math.MaxUint32 {
			return errors.Overflow(errors.PhaseEncode, path, n, "u32 array length")
		}
		w.U32(uint32(n))
		for i := 0; i < n; i++ {
			elemPath := append(path[:len(path):len(path)], "["+strconv.Itoa(i)+"]")
			if err := e.writeValue(w, t.Elem, rv.Index(i).Interface(), elemPath); err != nil {
				return err
			}
		}
	case red.KindHandle, red.KindWeakHandle:
		idx, err := e.handleIndex(t, v, path)
		if err != nil {
			return err
		}
		w.I32(idx)
	case red.KindResourceRef, red.KindResourceAsyncRef:
		if v == nil {
			w.I16(-1)
			return nil
		}
		ref, ok := v.(*red.ResourceRef)
		if !ok {
			return mismatch()
		}
		if ref == nil {
			w.I16(-1)
			return nil
		}
		if ref.Index < 0 || int(ref.Index) >= len(e.pkg.Imports) {
			return errors.OutOfBounds(errors.PhaseEncode, path, int(ref.Index), len(e.pkg.Imports))
		}
		w.I16(ref.Index)
	case red.KindClass:
		cls, ok := v.(red.Class)
		if !ok {
			return mismatch()
		}
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return errors.NilPointer(errors.PhaseEncode, path, rv.Type().String())
		}
		if err := e.enter(path); err != nil {
			return err
		}
		defer e.leave()
		if cls.ClassName() != t.Class {
			return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(path...).
				RedType(t.Name).
				Detail("inline value is a %s", cls.ClassName()).
				Build()
		}
		return e.writeBody(w, cls, path)
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupportedFeature).
			Path(path...).
			RedType(t.Name).
			Build()
	}
	return nil
}

// enter tracks inline nesting so a cyclic graph of inline values fails
// instead of recursing without end.
func (e *encoder) enter(path []string) error {
	if e.depth >= maxNesting {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).
			Detail("nesting exceeds %d levels", maxNesting).
			Build()
	}
	e.depth++
	return nil
}

func (e *encoder) leave() {
	e.depth--
}

// handleIndex returns the chunk index a handle value encodes to. Unbound
// weak handles keep their recorded index; unbound strong handles are an
// error since Decode would reject them.
func (e *encoder) handleIndex(t *red.Type, v any, path []string) (int32, error) {
	var target red.Class
	switch h := v.(type) {
	case nil:
		return -1, nil
	case *red.Handle:
		if t.Kind != red.KindHandle {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, "*red.Handle", t.Name)
		}
		if h == nil {
			return -1, nil
		}
		if h.Target == nil {
			return 0, errors.UnresolvedReference(errors.PhaseEncode, path, h.Index, len(e.pkg.Chunks))
		}
		target = h.Target
	case *red.WeakHandle:
		if t.Kind != red.KindWeakHandle {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, "*red.WeakHandle", t.Name)
		}
		if h == nil {
			return -1, nil
		}
		if h.Target == nil {
			return h.Index, nil
		}
		target = h.Target
	default:
		return 0, errors.TypeMismatch(errors.PhaseEncode, path, reflect.TypeOf(v).String(), t.Name)
	}

	if reflect.ValueOf(target).Kind() != reflect.Pointer {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).
			GoType(reflect.TypeOf(target).String()).
			Detail("handle target must be a pointer").
			Build()
	}
	idx, ok := e.index[target]
	if !ok {
		return 0, errors.New(errors.PhaseEncode, errors.KindUnresolvedReference).
			Path(path...).
			Detail("handle target %s is not a chunk of the package", target.ClassName()).
			Build()
	}
	return int32(idx), nil
}

// nameTable interns strings in first-use order on top of an existing pool.
type nameTable struct {
	index map[string]int
	list  []string
}

func newNameTable(seed []string) (*nameTable, error) {
	t := &nameTable{
		index: make(map[string]int, len(seed)),
		list:  make([]string, 0, len(seed)),
	}
	for i, s := range seed {
		if first, dup := t.index[s]; dup {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(fmt.Sprintf("names[%d]", i)).
				Detail("name %q already interned at %d", s, first).
				Build()
		}
		t.intern(s)
	}
	return t, nil
}

func (t *nameTable) intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.list)
	t.index[s] = i
	t.list = append(t.list, s)
	return i
}

// short interns s and returns its index as a u16.
func (t *nameTable) short(s string, path []string) (uint16, error) {
	i := t.intern(s)
	if i > math.MaxUint16 {
		return 0, errors.Overflow(errors.PhaseEncode, path, i, "u16 name index")
	}
	return uint16(i), nil
}
