// Package redpkg reads and writes versioned package containers: a header,
// an import pool, a name pool and a table of typed chunks that reference
// each other through handles.
//
// # Architecture Overview
//
//	redpkg/              Load and Save helpers over the packages below
//	├── red/             Value model: classes, handles, imports, type names
//	├── registry/        Class registry and Go struct shapes
//	├── classes/         Built-in static classes
//	├── codec/           Decoder and encoder
//	├── collect/         Pool collection and hash to path tables
//	├── source/          LZ4 and zstd framing, fingerprints
//	├── dump/            Plain snapshots as text, JSON or CBOR
//	├── query/           expr-lang chunk filters
//	├── config/          YAML and JSONC options files
//	├── errors/          Structured error types
//	└── cmd/redpkg/      Command line tool
//
// # Quick Start
//
// Decode a package with the built-in classes:
//
//	pkg, reg, err := redpkg.Load(ctx, "entity.ent", codec.Options{}, source.CompressionAuto)
//	if err != nil {
//	    return err
//	}
//	for i, c := range pkg.Chunks {
//	    fmt.Println(i, c.ClassName())
//	}
//
// Chunks whose class the registry knows decode into Go structs from the
// classes package. Every other class decodes into *red.Dynamic and
// re-encodes byte for byte.
//
// # Handles
//
// Strong handles must resolve to a chunk of the same package. Weak handles
// may dangle; they stay unbound and keep their index so that Save writes
// them back unchanged.
//
// # Errors
//
// All errors are *errors.Error values carrying a phase and a kind:
//
//	if errors.Is(err, rederrors.ErrUnresolvedReference) { ... }
package redpkg
