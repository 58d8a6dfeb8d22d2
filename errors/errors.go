package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // registry shape compilation
	PhaseHeader   Phase = "header"   // fixed header prefix
	PhasePool     Phase = "pool"     // import and name pools
	PhaseChunk    Phase = "chunk"    // chunk bodies
	PhaseResolve  Phase = "resolve"  // handle patch pass
	PhaseAssemble Phase = "assemble" // root identifiers and final package
	PhaseEncode   Phase = "encode"   // package to bytes
	PhaseLoad     Phase = "load"     // input sources
	PhaseConfig   Phase = "config"   // options files
	PhaseQuery    Phase = "query"    // chunk filter expressions
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedFormat   Kind = "unsupported_format"
	KindUnsupportedFeature  Kind = "unsupported_feature"
	KindMalformedPool       Kind = "malformed_pool"
	KindUnresolvedReference Kind = "unresolved_reference"
	KindUnknownType         Kind = "unknown_type"
	KindTypeMismatch        Kind = "type_mismatch"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindOverflow            Kind = "overflow"
	KindNilPointer          Kind = "nil_pointer"
	KindInvalidInput        Kind = "invalid_input"
	KindRegistration        Kind = "registration"
	KindCanceled            Kind = "canceled"
)

// Sentinels for errors.Is. A target with an empty Phase matches on Kind alone.
var (
	ErrUnsupportedFormat   = &Error{Kind: KindUnsupportedFormat}
	ErrUnsupportedFeature  = &Error{Kind: KindUnsupportedFeature}
	ErrMalformedPool       = &Error{Kind: KindMalformedPool}
	ErrUnresolvedReference = &Error{Kind: KindUnresolvedReference}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

// Error is the structured error type used throughout the codec
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	RedType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.RedType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.RedType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", RED type ")
			b.WriteString(e.RedType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("RED type ")
			b.WriteString(e.RedType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.RedType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// RedType sets the RED type name
func (b *Builder) RedType(t string) *Builder {
	b.err.RedType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedFormat creates a header rejection error
func UnsupportedFormat(detail string, args ...any) *Error {
	return New(PhaseHeader, KindUnsupportedFormat).Detail(detail, args...).Build()
}

// UnsupportedFeature creates an error for a recognized layout the codec does not handle
func UnsupportedFeature(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedFeature,
		Detail: what,
	}
}

// MalformedPool creates a descriptor/data consistency error
func MalformedPool(phase Phase, path []string, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedPool,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// UnresolvedReference creates an error for a strong handle whose target never materialized
func UnresolvedReference(phase Phase, path []string, index int32, count int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedReference,
		Path:   path,
		Detail: fmt.Sprintf("handle target %d not in chunk table (length %d)", index, count),
		Value:  index,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, redType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Path:    path,
		GoType:  goType,
		RedType: redType,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		Path:    path,
		RedType: target,
		Detail:  fmt.Sprintf("value %v overflows %s", value, target),
		Value:   value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registry construction error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates an input loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
