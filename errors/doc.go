// Package errors provides structured error types for the ebcc library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The four caller-visible kinds form a closed taxonomy:
// invalid_input, invalid_config, compression_failed, decompression_failed.
// Everything a codec operation returns carries one of them; no failure
// reachable from well-formed input panics.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindInvalidInput).
//		Detail("non-finite value %v at index %d", v, i).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidConfig("base compression ratio must be positive")
//	err := errors.CompressionFailed(cause, "engine returned null or zero size")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
