package codec

import (
	"fmt"

	"github.com/wippyai/redpkg/collect"
	"github.com/wippyai/redpkg/errors"
)

// SubKind selects the layout of the root identifier section. It is never
// inferred from the bytes.
type SubKind uint8

const (
	// KindDefault reads an i16 cruid index and a u16 count of root ids.
	KindDefault SubKind = iota
	// KindSaveResource reads a u32 count of root ids.
	KindSaveResource
	// KindScriptableSystem reads a u32 count of root ids but pairs none.
	KindScriptableSystem
)

func (k SubKind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindSaveResource:
		return "save-resource"
	case KindScriptableSystem:
		return "scriptable-system"
	default:
		return fmt.Sprintf("SubKind(%d)", uint8(k))
	}
}

// ParseSubKind parses the String form of a sub-kind. The empty string is
// KindDefault.
func ParseSubKind(s string) (SubKind, error) {
	switch s {
	case "", "default":
		return KindDefault, nil
	case "save-resource":
		return KindSaveResource, nil
	case "scriptable-system":
		return KindScriptableSystem, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown package kind %q", s))
	}
}

// pairsRoots reports whether root ids map one-to-one onto chunks.
func (k SubKind) pairsRoots() bool {
	return k == KindDefault || k == KindSaveResource
}

// Supported format versions when Options leaves the bounds zero.
const (
	DefaultMinVersion = 2
	DefaultMaxVersion = 4
)

// Options configures a decode or encode.
type Options struct {
	// Collection receives every pool entry when CollectData is set.
	Collection collect.Sink

	Kind SubKind

	// MinVersion and MaxVersion bound the accepted format version,
	// inclusive. Zero selects the default.
	MinVersion uint16
	MaxVersion uint16

	// ImportsAsHash reads and writes imports as 8-byte path hashes
	// instead of depot path strings.
	ImportsAsHash bool

	CollectData bool

	// ReportUnresolvedWeak records weak handles whose target never
	// materialized in Package.Unresolved.
	ReportUnresolvedWeak bool
}

func (o Options) versions() (uint16, uint16) {
	lo, hi := o.MinVersion, o.MaxVersion
	if lo == 0 {
		lo = DefaultMinVersion
	}
	if hi == 0 {
		hi = DefaultMaxVersion
	}
	return lo, hi
}

func (o Options) sink() collect.Sink {
	if !o.CollectData {
		return nil
	}
	return o.Collection
}

func (o Options) validate(phase errors.Phase) error {
	if o.Kind > KindScriptableSystem {
		return errors.InvalidInput(phase, fmt.Sprintf("unknown package kind %d", o.Kind))
	}
	if lo, hi := o.versions(); lo > hi {
		return errors.InvalidInput(phase, fmt.Sprintf("version range %d..%d is empty", lo, hi))
	}
	return nil
}
