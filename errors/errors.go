package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // policy and input validation
	PhaseEncode   Phase = "encode"   // grid to compressed payload
	PhaseDecode   Phase = "decode"   // compressed payload to grid
	PhaseEngine   Phase = "engine"   // foreign engine invocation
	PhaseLoad     Phase = "load"     // engine module loading
)

// Kind categorizes the error
type Kind string

const (
	// Caller-visible taxonomy. Every error returned by Encode/DecodeInto
	// carries one of these four kinds.
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidConfig       Kind = "invalid_config"
	KindCompressionFailed   Kind = "compression_failed"
	KindDecompressionFailed Kind = "decompression_failed"

	// Engine-internal kinds. These surface directly only from engine
	// construction; inside a codec operation they are wrapped into one of
	// the taxonomy kinds above.
	KindOutOfBounds    Kind = "out_of_bounds"
	KindAllocation     Kind = "allocation"
	KindMissingExport  Kind = "missing_export"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidData    Kind = "invalid_data"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
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
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Convenience constructors for common error patterns

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindInvalidInput).Detail(detail, args...).Build()
}

// InvalidConfig creates a policy validation error
func InvalidConfig(detail string, args ...any) *Error {
	return New(PhaseValidate, KindInvalidConfig).Detail(detail, args...).Build()
}

// CompressionFailed creates a foreign encode failure error
func CompressionFailed(cause error, detail string) *Error {
	return New(PhaseEncode, KindCompressionFailed).Cause(cause).Detail("%s", detail).Build()
}

// DecompressionFailed creates a foreign decode failure error
func DecompressionFailed(cause error, detail string) *Error {
	return New(PhaseDecode, KindDecompressionFailed).Cause(cause).Detail("%s", detail).Build()
}

// AllocationFailed creates an engine allocation failure error
func AllocationFailed(size uint32, cause error) *Error {
	return New(PhaseEngine, KindAllocation).
		Cause(cause).
		Detail("failed to allocate %d bytes in engine memory", size).
		Build()
}

// OutOfBounds creates an engine memory bounds error
func OutOfBounds(offset, length uint32) *Error {
	return New(PhaseEngine, KindOutOfBounds).
		Detail("engine memory access out of bounds: offset=%d length=%d", offset, length).
		Build()
}

// MissingExport creates an error for a wasm export the engine requires
func MissingExport(name string) *Error {
	return New(PhaseLoad, KindMissingExport).
		Detail("engine module does not export %q", name).
		Build()
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(component string) *Error {
	return New(PhaseEngine, KindNotInitialized).
		Detail("%s not initialized", component).
		Build()
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return New(PhaseLoad, KindInvalidData).Detail("%s", detail).Cause(cause).Build()
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
