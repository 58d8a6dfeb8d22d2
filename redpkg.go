package redpkg

import (
	"context"
	"sync"

	"github.com/wippyai/redpkg/classes"
	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/errors"
	"github.com/wippyai/redpkg/registry"
	"github.com/wippyai/redpkg/source"
)

// Load reads path, removes its compression framing and decodes it with the
// built-in registry.
func Load(ctx context.Context, path string, opts codec.Options, c source.Compression) (*codec.Package, *registry.Registry, error) {
	data, err := source.ReadFile(path, c)
	if err != nil {
		return nil, nil, err
	}
	return Decode(ctx, data, opts)
}

var builtin = sync.OnceValues(classes.NewRegistry)

// Registry returns the registry of the built-in classes. It is built once
// and shared by every caller.
func Registry() (*registry.Registry, error) {
	return builtin()
}

// Decode decodes uncompressed package bytes with the built-in registry.
func Decode(ctx context.Context, data []byte, opts codec.Options) (*codec.Package, *registry.Registry, error) {
	reg, err := Registry()
	if err != nil {
		return nil, nil, err
	}
	pkg, err := codec.DecodeContext(ctx, data, reg, opts)
	if err != nil {
		return nil, nil, err
	}
	return pkg, reg, nil
}

// Save encodes pkg and writes it to path with the given framing.
// CompressionAuto writes the package uncompressed.
func Save(path string, pkg *codec.Package, reg *registry.Registry, opts codec.Options, c source.Compression) error {
	data, err := codec.Encode(pkg, reg, opts)
	if err != nil {
		return err
	}
	return source.WriteFile(path, data, c)
}

// Verify re-encodes pkg and compares the result with the bytes it was
// decoded from. It returns the fingerprint of the original bytes.
func Verify(original []byte, pkg *codec.Package, reg *registry.Registry, opts codec.Options) (source.Fingerprint, error) {
	want := source.FingerprintOf(original)
	data, err := codec.Encode(pkg, reg, opts)
	if err != nil {
		return want, err
	}
	if got := source.FingerprintOf(data); got != want {
		return want, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Detail("re-encoded package differs: %s != %s (%d vs %d bytes)", got, want, len(data), len(original)).
			Build()
	}
	return want, nil
}
