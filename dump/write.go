package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wippyai/redpkg/internal/serial"
)

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCBOR writes doc as deterministic CBOR.
func WriteCBOR(w io.Writer, doc *Document) error {
	return serial.NewEncoder(w).Encode(doc)
}

// WriteText writes doc as an indented tree.
func WriteText(w io.Writer, doc *Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "package v%d, %d sections, %d components, kind %s\n",
		doc.Version, doc.Sections, doc.Components, doc.Kind)

	fmt.Fprintf(&b, "imports (%d)\n", len(doc.Imports))
	for i, imp := range doc.Imports {
		fmt.Fprintf(&b, "  [%d] %s", i, ImportLabel(imp))
		if imp.Sync {
			b.WriteString(" sync")
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "names (%d)\n", len(doc.Names))

	fmt.Fprintf(&b, "chunks (%d)\n", len(doc.Chunks))
	for _, c := range doc.Chunks {
		writeChunk(&b, c)
	}

	if len(doc.Unresolved) > 0 {
		fmt.Fprintf(&b, "unresolved weak handles (%d)\n", len(doc.Unresolved))
		for _, u := range doc.Unresolved {
			fmt.Fprintf(&b, "  %s -> #%d\n", strings.Join(u.Path, "."), u.Index)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeChunk(b *strings.Builder, c ChunkDoc) {
	b.WriteString(ChunkLabel(c))
	b.WriteByte('\n')
	for _, f := range c.Fields {
		fmt.Fprintf(b, "    %s: %s = %s\n", f.Name, f.Type, Format(f.Value))
	}
}

// ChunkLabel returns the one-line heading of a chunk.
func ChunkLabel(c ChunkDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  [%d] %s", c.Index, c.Type)
	if c.Root != nil {
		fmt.Fprintf(&b, " root=%d", *c.Root)
	}
	if c.Dynamic {
		b.WriteString(" (dynamic)")
	}
	return b.String()
}

// ImportLabel returns the path of an import, or its hash.
func ImportLabel(imp ImportDoc) string {
	if imp.Path != "" {
		return imp.Path
	}
	return fmt.Sprintf("%016x", imp.Hash)
}

// Format renders a plain value on one line. Handles print as #n for strong
// and ~n for weak references.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		if idx, ok := x["handle"]; ok {
			mark := "#"
			if weak, _ := x["weak"].(bool); weak {
				mark = "~"
			}
			return fmt.Sprintf("%s%v", mark, idx)
		}
		if idx, ok := x["import"]; ok {
			if p, ok := x["path"]; ok {
				return fmt.Sprintf("@%v(%v)", idx, p)
			}
			return fmt.Sprintf("@%v", idx)
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			if k != "$type" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Format(x[k])
		}
		return fmt.Sprintf("%v{%s}", x["$type"], strings.Join(parts, ", "))
	default:
		return fmt.Sprint(x)
	}
}
