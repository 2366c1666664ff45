package codec

import (
	"math"
	"strings"
	"testing"

	"github.com/wippyai/ebcc/errors"
	"github.com/wippyai/ebcc/grid"
)

func mustGrid(t *testing.T, frames, height, width int) *grid.Grid {
	t.Helper()
	g, err := grid.Fill(frames, height, width, 1.0)
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}
	return g
}

func TestValidateEncodeInput_OK(t *testing.T) {
	if err := validateEncodeInput(mustGrid(t, 1, 32, 32)); err != nil {
		t.Errorf("valid grid rejected: %v", err)
	}
	if err := validateEncodeInput(mustGrid(t, 3, 64, 128)); err != nil {
		t.Errorf("valid grid rejected: %v", err)
	}
}

func TestValidateEncodeInput_ZeroDimension(t *testing.T) {
	for _, dims := range [][3]int{{0, 32, 32}, {1, 0, 32}, {1, 32, 0}} {
		g, err := grid.New(dims[0], dims[1], dims[2])
		if err != nil {
			t.Fatalf("build grid: %v", err)
		}
		err = validateEncodeInput(g)
		if err == nil {
			t.Fatalf("grid %v accepted, want rejection", dims)
		}
		if !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("grid %v error = %v, want invalid_input", dims, err)
		}
	}
}

func TestValidateEncodeInput_SmallBlock(t *testing.T) {
	for _, dims := range [][3]int{{1, 31, 32}, {1, 32, 31}, {1, 8, 8}} {
		err := validateEncodeInput(mustGrid(t, dims[0], dims[1], dims[2]))
		if err == nil {
			t.Fatalf("grid %v accepted, want rejection", dims)
		}
		if !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("grid %v error kind = %v, want invalid_input", dims, err)
		}
		// The error must name the offending dimensions.
		if !strings.Contains(err.Error(), "32x32") {
			t.Errorf("error %q does not name the block minimum", err)
		}
	}
}

func TestValidateEncodeInput_NonFinite(t *testing.T) {
	tests := []struct {
		name  string
		value float32
	}{
		{"NaN", float32(math.NaN())},
		{"+Inf", float32(math.Inf(1))},
		{"-Inf", float32(math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGrid(t, 1, 32, 32)
			g.Set(0, 3, 4, tt.value)

			err := validateEncodeInput(g)
			if err == nil {
				t.Fatalf("non-finite grid accepted")
			}
			if !errors.IsKind(err, errors.KindInvalidInput) {
				t.Errorf("error kind = %v, want invalid_input", err)
			}
			// Flat index of (0, 3, 4) in a 1x32x32 grid.
			if !strings.Contains(err.Error(), "index 100") {
				t.Errorf("error %q does not name flat index 100", err)
			}
		})
	}
}

func TestValidateEncodeInput_Nil(t *testing.T) {
	if err := validateEncodeInput(nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("nil grid error = %v, want invalid_input", err)
	}
}

func TestCheckedElemCount(t *testing.T) {
	if n, err := checkedElemCount(2, 32, 32); err != nil || n != 2048 {
		t.Errorf("checkedElemCount(2,32,32) = %d, %v, want 2048, nil", n, err)
	}

	// Dimension product overflow.
	if _, err := checkedElemCount(math.MaxInt/2, 3, 1); err == nil {
		t.Errorf("overflowing product accepted")
	}
	if _, err := checkedElemCount(math.MaxInt, 2, 2); err == nil {
		t.Errorf("overflowing product accepted")
	}

	// Product fits an int but the byte size exceeds the engine's 32-bit
	// address space; such grids must be rejected here as invalid_input, not
	// surface later as an engine failure after the size math wraps uint32.
	for _, dims := range [][3]int{
		{1, 32768, 32768}, // 2^30 elements, byte size wraps uint32 to 0
		{1 << 31, 1, 1},
		{math.MaxInt / 4, 1, 1},
	} {
		_, err := checkedElemCount(dims[0], dims[1], dims[2])
		if err == nil {
			t.Fatalf("dims %v accepted, want rejection", dims)
		}
		if !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("dims %v error = %v, want invalid_input", dims, err)
		}
	}

	// Largest element count the engine can address.
	if _, err := checkedElemCount(math.MaxUint32/4, 1, 1); err != nil {
		t.Errorf("largest addressable count rejected: %v", err)
	}
}

func TestValidateDecodeInput(t *testing.T) {
	if err := validateDecodeInput([]byte{1, 2, 3}); err != nil {
		t.Errorf("non-empty payload rejected: %v", err)
	}

	err := validateDecodeInput(nil)
	if err == nil {
		t.Fatalf("empty payload accepted")
	}
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("error kind = %v, want invalid_input", err)
	}
}
