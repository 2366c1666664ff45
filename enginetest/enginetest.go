// Package enginetest provides an in-process stand-in for the EBCC engine.
//
// The stand-in honors the full foreign contract: it reads its inputs from
// engine-owned memory, is free to destroy them in place (and deliberately
// does, so defensive-copy bugs surface), allocates its output in engine
// memory, hands back a pointer through the out-slot, and expects exactly one
// Free per allocation. Allocation accounting (outstanding buffers, double
// frees) lets tests assert the codec's custody protocol.
//
// Compression is a toy quantize-then-zstd scheme that exists only so
// round-trip and error-bound properties can be tested without a wasm build
// of the real codec. It is not a product codec.
package enginetest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/errors"
)

const (
	// Arena address zero stands in for the null pointer; allocations
	// start past it.
	arenaBase = 16

	headerSize = 16
)

var payloadMagic = [4]byte{'Q', 'Z', '0', '1'}

var _ engine.Engine = (*Engine)(nil)

type allocation struct {
	size  uint32
	freed bool
}

// Engine is an in-process engine.Engine over a byte arena.
// Safe for concurrent use.
type Engine struct {
	mem *Memory

	allocs map[uint32]*allocation
	next   uint32

	encodeCalls int
	decodeCalls int
	doubleFrees int
	badFrees    int

	failEncode bool
	failDecode bool

	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

// New returns a ready engine. Close releases its zstd state.
func New() *Engine {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("enginetest: create zstd encoder: %v", err))
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("enginetest: create zstd decoder: %v", err))
	}

	e := &Engine{
		allocs: make(map[uint32]*allocation),
		next:   arenaBase,
		zenc:   zenc,
		zdec:   zdec,
	}
	e.mem = &Memory{eng: e, buf: make([]byte, arenaBase)}
	return e
}

// FailNextEncode makes every following Encode behave like a foreign failure:
// zero size, null out pointer.
func (e *Engine) FailNextEncode(fail bool) {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	e.failEncode = fail
}

// FailNextDecode is the decode counterpart of FailNextEncode.
func (e *Engine) FailNextDecode(fail bool) {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	e.failDecode = fail
}

// EncodeCalls reports how many times the foreign encode routine ran.
func (e *Engine) EncodeCalls() int {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return e.encodeCalls
}

// DecodeCalls reports how many times the foreign decode routine ran.
func (e *Engine) DecodeCalls() int {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return e.decodeCalls
}

// Outstanding reports allocations that have not been freed. A codec that
// honors the custody protocol leaves zero behind after every call.
func (e *Engine) Outstanding() int {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()

	n := 0
	for _, a := range e.allocs {
		if !a.freed {
			n++
		}
	}
	return n
}

// DoubleFrees reports Free calls on already-freed pointers.
func (e *Engine) DoubleFrees() int {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return e.doubleFrees
}

// BadFrees reports Free calls on pointers this engine never allocated.
func (e *Engine) BadFrees() int {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return e.badFrees
}

func (e *Engine) Alloc(ctx context.Context, size uint32) (uint32, error) {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return e.alloc(size), nil
}

// alloc is the lock-free inner allocator, also used by Encode/Decode for
// their result buffers. Bump allocation, 8-byte aligned.
func (e *Engine) alloc(size uint32) uint32 {
	ptr := e.next
	e.next += (size + 7) &^ 7
	if need := int(e.next); need > len(e.mem.buf) {
		e.mem.buf = append(e.mem.buf, make([]byte, need-len(e.mem.buf))...)
	}
	e.allocs[ptr] = &allocation{size: size}
	return ptr
}

func (e *Engine) Free(ctx context.Context, ptr uint32) error {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()

	if ptr == 0 {
		return nil
	}
	a, ok := e.allocs[ptr]
	if !ok {
		e.badFrees++
		return errors.New(errors.PhaseEngine, errors.KindAllocation).
			Detail("free of unknown pointer %d", ptr).
			Build()
	}
	if a.freed {
		e.doubleFrees++
		return errors.New(errors.PhaseEngine, errors.KindAllocation).
			Detail("double free of pointer %d", ptr).
			Build()
	}
	a.freed = true
	return nil
}

func (e *Engine) Memory() engine.Memory {
	return e.mem
}

func (e *Engine) Encode(ctx context.Context, dataPtr, configPtr, outPtr uint32) (uint32, error) {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()

	e.encodeCalls++
	if e.failEncode {
		e.mem.writeU32(outPtr, 0)
		return 0, nil
	}

	cfg, err := engine.UnmarshalCodecConfig(e.mem.unlocked(), configPtr)
	if err != nil {
		return 0, err
	}

	count := uint64(cfg.Dims[0]) * uint64(cfg.Dims[1]) * uint64(cfg.Dims[2])
	raw, err := e.mem.read(dataPtr, uint32(count)*engine.ElementSize)
	if err != nil {
		return 0, err
	}

	values := make([]float32, int(count))
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	// The contract lets the codec destroy its input; do so, loudly, so a
	// missing defensive copy cannot go unnoticed.
	for i := range raw {
		raw[i] = 0xA5
	}

	step := quantStep(cfg, values)
	var body []byte
	if step == 0 {
		body = make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(body[i*4:], math.Float32bits(v))
		}
	} else {
		body = make([]byte, 4*len(values))
		for i, v := range values {
			q := math.Round(float64(v) / float64(step))
			q = math.Max(math.MinInt32, math.Min(math.MaxInt32, q))
			binary.LittleEndian.PutUint32(body[i*4:], uint32(int32(q)))
		}
	}

	blob := make([]byte, headerSize)
	copy(blob, payloadMagic[:])
	if step != 0 {
		blob[4] = 1
	}
	binary.LittleEndian.PutUint32(blob[8:], math.Float32bits(step))
	binary.LittleEndian.PutUint32(blob[12:], uint32(count))
	blob = append(blob, e.zenc.EncodeAll(body, nil)...)

	resultPtr := e.alloc(uint32(len(blob)))
	if err := e.mem.write(resultPtr, blob); err != nil {
		return 0, err
	}
	if err := e.mem.writeU32(outPtr, resultPtr); err != nil {
		return 0, err
	}
	return uint32(len(blob)), nil
}

func (e *Engine) Decode(ctx context.Context, dataPtr, dataLen, outPtr uint32) (uint32, error) {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()

	e.decodeCalls++
	if e.failDecode {
		e.mem.writeU32(outPtr, 0)
		return 0, nil
	}

	blob, err := e.mem.read(dataPtr, dataLen)
	if err != nil {
		return 0, err
	}
	// Same in-place destruction hazard as encode: work on a copy, then
	// scramble the input.
	blob = append([]byte(nil), blob...)
	if scratch, err := e.mem.read(dataPtr, dataLen); err == nil {
		for i := range scratch {
			scratch[i] = 0x5A
		}
	}

	if len(blob) < headerSize || [4]byte(blob[:4]) != payloadMagic {
		e.mem.writeU32(outPtr, 0)
		return 0, nil
	}
	quantized := blob[4] == 1
	step := math.Float32frombits(binary.LittleEndian.Uint32(blob[8:]))
	count := binary.LittleEndian.Uint32(blob[12:])

	body, err := e.zdec.DecodeAll(blob[headerSize:], nil)
	if err != nil || len(body) != int(count)*4 {
		e.mem.writeU32(outPtr, 0)
		return 0, nil
	}

	out := make([]byte, count*engine.ElementSize)
	for i := uint32(0); i < count; i++ {
		word := binary.LittleEndian.Uint32(body[i*4:])
		var v float32
		if quantized {
			v = float32(int32(word)) * step
		} else {
			v = math.Float32frombits(word)
		}
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}

	resultPtr := e.alloc(uint32(len(out)))
	if err := e.mem.write(resultPtr, out); err != nil {
		return 0, err
	}
	if err := e.mem.writeU32(outPtr, resultPtr); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) Close(ctx context.Context) error {
	if err := e.zenc.Close(); err != nil {
		return err
	}
	e.zdec.Close()
	return nil
}

// quantStep derives the quantization step for a config. Zero means lossless
// passthrough (base-only mode, or degenerate all-zero relative input).
func quantStep(cfg engine.CodecConfig, values []float32) float32 {
	switch cfg.ResidualMode {
	case engine.ResidualMaxError:
		return cfg.ErrorBound
	case engine.ResidualRelativeError:
		var maxAbs float32
		for _, v := range values {
			if a := float32(math.Abs(float64(v))); a > maxAbs {
				maxAbs = a
			}
		}
		return cfg.ErrorBound * maxAbs
	default:
		return 0
	}
}
