package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindInvalidInput,
				Detail: "non-finite value at index 12",
			},
			contains: []string{"[validate]", "invalid_input", "non-finite value at index 12"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindDecompressionFailed,
			},
			contains: []string{"[decode]", "decompression_failed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEngine,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[engine]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := CompressionFailed(cause, "engine call failed")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is did not find wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestError_Is(t *testing.T) {
	a := InvalidConfig("base compression ratio must be positive")
	b := InvalidConfig("error bound must be positive")

	if !errors.Is(a, b) {
		t.Errorf("errors with same phase and kind should match")
	}

	c := InvalidInput(PhaseValidate, "all dimensions must be > 0")
	if errors.Is(a, c) {
		t.Errorf("errors with different kinds should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("trap")
	err := New(PhaseEncode, KindCompressionFailed).
		Detail("engine returned %d", 0).
		Cause(cause).
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %q, want %q", err.Phase, PhaseEncode)
	}
	if err.Kind != KindCompressionFailed {
		t.Errorf("Kind = %q, want %q", err.Kind, KindCompressionFailed)
	}
	if err.Detail != "engine returned 0" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestIsKind(t *testing.T) {
	inner := AllocationFailed(128, errors.New("out of memory"))
	outer := CompressionFailed(inner, "staging allocation failed")

	if !IsKind(outer, KindCompressionFailed) {
		t.Errorf("IsKind should match the outer kind")
	}
	if !IsKind(outer, KindAllocation) {
		t.Errorf("IsKind should match a kind deeper in the chain")
	}
	if IsKind(outer, KindInvalidConfig) {
		t.Errorf("IsKind matched a kind not present in the chain")
	}

	wrapped := fmt.Errorf("context: %w", outer)
	if !IsKind(wrapped, KindCompressionFailed) {
		t.Errorf("IsKind should see through fmt.Errorf wrapping")
	}
	if IsKind(nil, KindInvalidInput) {
		t.Errorf("IsKind(nil) should be false")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"InvalidInput", InvalidInput(PhaseDecode, "compressed data is empty"), PhaseDecode, KindInvalidInput},
		{"InvalidConfig", InvalidConfig("bad ratio"), PhaseValidate, KindInvalidConfig},
		{"CompressionFailed", CompressionFailed(nil, "x"), PhaseEncode, KindCompressionFailed},
		{"DecompressionFailed", DecompressionFailed(nil, "x"), PhaseDecode, KindDecompressionFailed},
		{"MissingExport", MissingExport("ebcc_encode"), PhaseLoad, KindMissingExport},
		{"NotInitialized", NotInitialized("engine"), PhaseEngine, KindNotInitialized},
		{"OutOfBounds", OutOfBounds(16, 4), PhaseEngine, KindOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %q, want %q", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
		})
	}
}
