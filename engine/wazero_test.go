package engine

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ebcc/errors"
)

// emptyModule is the smallest valid wasm binary: header only, no sections.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestNewWazeroEngine_InvalidBinary(t *testing.T) {
	ctx := context.Background()

	_, err := NewWazeroEngine(ctx, []byte("not wasm"), nil)
	if err == nil {
		t.Fatalf("expected error for invalid binary")
	}
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("error kind = %v, want invalid_data load error", err)
	}
}

func TestNewWazeroEngine_MissingExports(t *testing.T) {
	ctx := context.Background()

	// A valid module with no exports must be rejected before any call is
	// possible; memory is the first export checked.
	_, err := NewWazeroEngine(ctx, emptyModule, nil)
	if err == nil {
		t.Fatalf("expected error for module without exports")
	}
	if !errors.IsKind(err, errors.KindMissingExport) {
		t.Errorf("error = %v, want missing_export", err)
	}
}

// lockCheckMemory fails unless every access arrives with mu already held.
// Unimplemented api.Memory methods panic via the embedded nil interface.
type lockCheckMemory struct {
	api.Memory
	t   *testing.T
	mu  *sync.Mutex
	buf [16]byte
}

func (m *lockCheckMemory) assertLocked(op string) {
	m.t.Helper()
	if m.mu.TryLock() {
		m.mu.Unlock()
		m.t.Errorf("%s reached guest memory without the engine mutex held", op)
	}
}

func (m *lockCheckMemory) Read(offset, length uint32) ([]byte, bool) {
	m.assertLocked("Read")
	if int(offset)+int(length) > len(m.buf) {
		return nil, false
	}
	return m.buf[offset : offset+length], true
}

func (m *lockCheckMemory) Write(offset uint32, data []byte) bool {
	m.assertLocked("Write")
	if int(offset)+len(data) > len(m.buf) {
		return false
	}
	copy(m.buf[offset:], data)
	return true
}

func (m *lockCheckMemory) ReadUint32Le(offset uint32) (uint32, bool) {
	m.assertLocked("ReadU32")
	return 0, int(offset)+4 <= len(m.buf)
}

func (m *lockCheckMemory) WriteUint32Le(offset, _ uint32) bool {
	m.assertLocked("WriteU32")
	return int(offset)+4 <= len(m.buf)
}

func (m *lockCheckMemory) Size() uint32 {
	m.assertLocked("Size")
	return uint32(len(m.buf))
}

// Guest memory growth during a concurrent Alloc can reallocate the backing
// buffer, so WazeroMemory must hold the engine mutex across every access.
func TestWazeroMemory_AccessHoldsEngineMutex(t *testing.T) {
	var mu sync.Mutex
	inner := &lockCheckMemory{t: t, mu: &mu}
	mem := &WazeroMemory{mem: inner, mu: &mu}

	if err := mem.Write(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := mem.Read(0, 4); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := mem.WriteU32(4, 7); err != nil {
		t.Fatalf("write u32: %v", err)
	}
	if _, err := mem.ReadU32(4); err != nil {
		t.Fatalf("read u32: %v", err)
	}
	if err := mem.WriteF32(8, 1.5); err != nil {
		t.Fatalf("write f32: %v", err)
	}
	if _, err := mem.ReadF32(8); err != nil {
		t.Fatalf("read f32: %v", err)
	}
	if got := mem.Size(); got != 16 {
		t.Errorf("Size() = %d, want 16", got)
	}

	// Out-of-bounds access maps to the taxonomy and releases the mutex.
	if _, err := mem.Read(12, 8); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("out-of-bounds read error = %v, want out_of_bounds", err)
	}
	if !mu.TryLock() {
		t.Fatalf("engine mutex still held after memory access")
	}
	mu.Unlock()
}

// TestWazeroEngine_CodecModule exercises the full engine contract against a
// real EBCC wasm build. Set EBCC_WASM to the module path to enable it.
func TestWazeroEngine_CodecModule(t *testing.T) {
	path := os.Getenv("EBCC_WASM")
	if path == "" {
		t.Skip("EBCC_WASM not set; skipping engine integration test")
	}

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	ctx := context.Background()
	eng, err := NewWazeroEngine(ctx, wasmBytes, &Config{MemoryLimitPages: 4096})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	defer eng.Close(ctx)

	// Staging allocation and memory round trip.
	ptr, err := eng.Alloc(ctx, 64)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	payload := []byte("staging copy round trip: 0123456789abcdef")
	if err := eng.Memory().Write(ptr, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := eng.Memory().Read(ptr, uint32(len(payload)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("memory round trip mismatch")
	}
	if err := eng.Free(ctx, ptr); err != nil {
		t.Fatalf("free: %v", err)
	}
}
