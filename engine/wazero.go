package engine

import (
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/ebcc/errors"
)

// WazeroEngine implements Engine by hosting a wasm32 build of the EBCC codec
// under wazero. The wasm instance is not thread-safe, so every foreign call
// is serialized on an internal mutex; the engine itself may be shared by
// concurrent codec calls.
type WazeroEngine struct {
	runtime  wazero.Runtime
	instance api.Module
	mem      *WazeroMemory

	encodeFn api.Function
	decodeFn api.Function
	allocFn  api.Function
	freeFn   api.Function

	// cabi_realloc takes (old, oldSize, align, newSize); malloc takes (size).
	isCabiRealloc bool

	mu       sync.Mutex
	stackBuf []uint64
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum engine memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// NewWazeroEngine compiles and instantiates an EBCC wasm module.
// The module must export ebcc_encode, ebcc_decode, a free routine
// (free_buffer or free), an allocator (malloc or cabi_realloc), and its
// linear memory. WASI preview1 imports are satisfied automatically.
func NewWazeroEngine(ctx context.Context, wasmBytes []byte, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.Load("compile engine module", err)
	}

	// The codec is a reactor module: suppress _start and run _initialize
	// by hand if the build exposes one.
	moduleCfg := wazero.NewModuleConfig().WithName("ebcc").WithStartFunctions()
	instance, err := runtime.InstantiateModule(ctx, compiled, moduleCfg)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.Load("instantiate engine module", err)
	}

	e := &WazeroEngine{
		runtime:  runtime,
		instance: instance,
		stackBuf: make([]uint64, 4),
	}

	if err := e.bindExports(ctx); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	Logger().Debug("engine module instantiated",
		zap.Uint32("memory_bytes", e.mem.Size()),
		zap.Bool("cabi_realloc", e.isCabiRealloc))

	return e, nil
}

func (e *WazeroEngine) bindExports(ctx context.Context) error {
	mem := e.instance.Memory()
	if mem == nil {
		return errors.MissingExport("memory")
	}
	e.mem = &WazeroMemory{mem: mem, mu: &e.mu}

	if e.encodeFn = e.instance.ExportedFunction(ExportEncode); e.encodeFn == nil {
		return errors.MissingExport(ExportEncode)
	}
	if e.decodeFn = e.instance.ExportedFunction(ExportDecode); e.decodeFn == nil {
		return errors.MissingExport(ExportDecode)
	}

	if e.allocFn = e.instance.ExportedFunction(simpleAlloc); e.allocFn == nil {
		if e.allocFn = e.instance.ExportedFunction(cabiRealloc); e.allocFn == nil {
			return errors.MissingExport(simpleAlloc)
		}
		e.isCabiRealloc = true
	}

	if e.freeFn = e.instance.ExportedFunction(ExportFreeBuffer); e.freeFn == nil {
		if e.freeFn = e.instance.ExportedFunction(simpleFree); e.freeFn == nil {
			return errors.MissingExport(ExportFreeBuffer)
		}
	}

	if initFn := e.instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			return errors.Load("run engine _initialize", err)
		}
	}
	return nil
}

func (e *WazeroEngine) Alloc(ctx context.Context, size uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.allocFn == nil {
		return 0, errors.NotInitialized("engine allocator")
	}

	var err error
	if e.isCabiRealloc {
		e.stackBuf[0] = 0
		e.stackBuf[1] = 0
		e.stackBuf[2] = uint64(ElementSize)
		e.stackBuf[3] = uint64(size)
		err = e.allocFn.CallWithStack(ctx, e.stackBuf[:4])
	} else {
		e.stackBuf[0] = uint64(size)
		err = e.allocFn.CallWithStack(ctx, e.stackBuf[:1])
	}
	if err != nil {
		return 0, errors.AllocationFailed(size, err)
	}

	ptr := uint32(e.stackBuf[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(size, nil)
	}
	return ptr, nil
}

func (e *WazeroEngine) Free(ctx context.Context, ptr uint32) error {
	if ptr == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.freeFn == nil {
		return errors.NotInitialized("engine free routine")
	}
	e.stackBuf[0] = uint64(ptr)
	if err := e.freeFn.CallWithStack(ctx, e.stackBuf[:1]); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindAllocation, err, "free engine buffer")
	}
	return nil
}

func (e *WazeroEngine) Memory() Memory {
	return e.mem
}

func (e *WazeroEngine) Encode(ctx context.Context, dataPtr, configPtr, outPtr uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stackBuf[0] = uint64(dataPtr)
	e.stackBuf[1] = uint64(configPtr)
	e.stackBuf[2] = uint64(outPtr)
	if err := e.encodeFn.CallWithStack(ctx, e.stackBuf[:3]); err != nil {
		return 0, errors.Wrap(errors.PhaseEngine, errors.KindCompressionFailed, err, "ebcc_encode trapped")
	}
	return uint32(e.stackBuf[0]), nil
}

func (e *WazeroEngine) Decode(ctx context.Context, dataPtr, dataLen, outPtr uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stackBuf[0] = uint64(dataPtr)
	e.stackBuf[1] = uint64(dataLen)
	e.stackBuf[2] = uint64(outPtr)
	if err := e.decodeFn.CallWithStack(ctx, e.stackBuf[:3]); err != nil {
		return 0, errors.Wrap(errors.PhaseEngine, errors.KindDecompressionFailed, err, "ebcc_decode trapped")
	}
	return uint32(e.stackBuf[0]), nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	if e.instance != nil {
		if err := e.instance.Close(ctx); err != nil {
			firstErr = err
		}
		e.instance = nil
	}
	if e.runtime != nil {
		if err := e.runtime.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		e.runtime = nil
	}
	e.mem = nil
	e.encodeFn = nil
	e.decodeFn = nil
	e.allocFn = nil
	e.freeFn = nil
	return firstErr
}

// WazeroMemory wraps wazero memory to implement ebcc.Memory. Every access
// takes the engine mutex: a concurrent Alloc can grow guest memory, and
// wazero may satisfy growth by reallocating the backing buffer, so unlocked
// reads and writes could see a stale view. Views returned by Read are only
// valid until the mutex is next released; copy them out before issuing
// another engine call.
type WazeroMemory struct {
	mem api.Memory
	mu  *sync.Mutex
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok := m.mem.Write(offset, data); !ok {
		return errors.OutOfBounds(offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(offset, 4)
	}
	return val, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok := m.mem.WriteUint32Le(offset, value); !ok {
		return errors.OutOfBounds(offset, 4)
	}
	return nil
}

func (m *WazeroMemory) ReadF32(offset uint32) (float32, error) {
	bits, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (m *WazeroMemory) WriteF32(offset uint32, value float32) error {
	return m.WriteU32(offset, math.Float32bits(value))
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.Size()
}
