package grid

import (
	"testing"
)

func TestNew(t *testing.T) {
	g, err := New(2, 3, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f, h, w := g.Dims()
	if f != 2 || h != 3 || w != 4 {
		t.Errorf("Dims() = (%d, %d, %d), want (2, 3, 4)", f, h, w)
	}
	if g.Len() != 24 {
		t.Errorf("Len() = %d, want 24", g.Len())
	}
	for i, v := range g.Data() {
		if v != 0 {
			t.Fatalf("element %d = %v, want 0", i, v)
		}
	}
}

func TestNew_ZeroDimension(t *testing.T) {
	// Zero dimensions are constructible; the codec validator rejects them.
	g, err := New(0, 32, 32)
	if err != nil {
		t.Fatalf("New with zero dimension: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestNew_NegativeDimension(t *testing.T) {
	if _, err := New(-1, 32, 32); err == nil {
		t.Errorf("New with negative dimension should fail")
	}
}

func TestNew_OverflowingDimensions(t *testing.T) {
	// Products that overflow int must error, not panic in make or wrap to a
	// small length where Dims and Len disagree.
	cases := []struct {
		name                  string
		frames, height, width int
	}{
		{"huge frames", 1 << 62, 3, 1},
		{"wrap to zero", 1 << 32, 1 << 32, 1},
		{"byte size overflow", 1 << 31, 1 << 15, 1 << 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.frames, tc.height, tc.width); err == nil {
				t.Errorf("New(%d, %d, %d) should fail", tc.frames, tc.height, tc.width)
			}
			if _, err := Fill(tc.frames, tc.height, tc.width, 1.0); err == nil {
				t.Errorf("Fill(%d, %d, %d) should fail", tc.frames, tc.height, tc.width)
			}
			if _, err := FromSlice(tc.frames, tc.height, tc.width, nil); err == nil {
				t.Errorf("FromSlice(%d, %d, %d) should fail", tc.frames, tc.height, tc.width)
			}
		})
	}
}

func TestFromSlice(t *testing.T) {
	data := make([]float32, 1*32*32)
	g, err := FromSlice(1, 32, 32, data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	// The grid aliases the slice, it does not copy.
	data[5] = 42
	if g.Data()[5] != 42 {
		t.Errorf("grid should alias the provided slice")
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	if _, err := FromSlice(1, 32, 32, make([]float32, 10)); err == nil {
		t.Errorf("FromSlice with short slice should fail")
	}
	if _, err := FromSlice(1, 2, 3, make([]float32, 7)); err == nil {
		t.Errorf("FromSlice with long slice should fail")
	}
}

func TestAtSet(t *testing.T) {
	g, err := New(2, 4, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g.Set(1, 2, 3, 7.5)
	if got := g.At(1, 2, 3); got != 7.5 {
		t.Errorf("At(1,2,3) = %v, want 7.5", got)
	}

	// Flat index should be (frame*height + row)*width + col.
	if got := g.Data()[(1*4+2)*8+3]; got != 7.5 {
		t.Errorf("flat storage = %v at expected offset, want 7.5", got)
	}
}

func TestFill(t *testing.T) {
	g, err := Fill(1, 32, 32, 1.5)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	for i, v := range g.Data() {
		if v != 1.5 {
			t.Fatalf("element %d = %v, want 1.5", i, v)
		}
	}
}

func TestString(t *testing.T) {
	g, err := New(1, 721, 1440)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := g.String(); got != "grid(1, 721, 1440)" {
		t.Errorf("String() = %q", got)
	}
}
