// Package errors provides structured error types for the redpkg codec.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/RED type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePool, errors.KindMalformedPool).
//		Path("imports", "3").
//		Detail("hash import size %d, want 8", size).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedFormat("version %d outside [%d, %d]", v, lo, hi)
//	err := errors.UnresolvedReference(path, 12, 5)
//
// Callers that only care about the category match the sentinels, which
// ignore the phase:
//
//	if errors.Is(err, rerrors.ErrMalformedPool) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
