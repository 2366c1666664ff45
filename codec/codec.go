package codec

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/errors"
	"github.com/wippyai/ebcc/grid"
)

// Codec is the foreign-call adapter. It owns the unsafe boundary: defensive
// copy-in, foreign invocation, out-pointer capture, copy-out, and
// exactly-once deallocation of engine-allocated buffers.
//
// A Codec is stateless apart from its engine binding and safe for concurrent
// use as long as each call owns its own grids and payloads.
type Codec struct {
	engine engine.Engine
	logger *zap.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger attaches a logger for per-call debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// New binds a Codec to an engine.
func New(eng engine.Engine, opts ...Option) *Codec {
	c := &Codec{
		engine: eng,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode compresses a 3-D grid under the given policy and returns the owned
// compressed bytes.
//
// Validation runs before any engine effect: dimensions, size, block minimum,
// policy invariants, then a full finite scan. The engine is handed a
// defensive copy of the elements (the foreign routine may destroy its input
// in place); its output buffer is copied out and freed exactly once before
// Encode returns.
func (c *Codec) Encode(ctx context.Context, g *grid.Grid, p Policy) ([]byte, error) {
	if c.engine == nil {
		return nil, errors.CompressionFailed(errors.NotInitialized("engine"), "codec has no engine")
	}
	if err := validateEncodeInput(g); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	frames, height, width := g.Dims()
	elems := g.Data()
	dataSize := uint32(len(elems)) * engine.ElementSize

	staging := engine.NewAllocationList()
	defer staging.FreeAndRelease(ctx, c.engine)

	mem := c.engine.Memory()

	// Defensive copy of the caller's elements into engine memory. The
	// caller's slice is never visible to the foreign routine.
	dataPtr, err := c.stage(ctx, staging, dataSize)
	if err != nil {
		return nil, errors.CompressionFailed(err, "stage element buffer")
	}
	if err := mem.Write(dataPtr, floatsToBytes(elems)); err != nil {
		return nil, errors.CompressionFailed(err, "copy elements into engine memory")
	}

	cfgPtr, err := c.stage(ctx, staging, engine.ConfigSize)
	if err != nil {
		return nil, errors.CompressionFailed(err, "stage config record")
	}
	cfg := p.foreignConfig(frames, height, width)
	if err := cfg.Marshal(mem, cfgPtr); err != nil {
		return nil, errors.CompressionFailed(err, "marshal config record")
	}

	outPtr, err := c.stage(ctx, staging, engine.PointerSize)
	if err != nil {
		return nil, errors.CompressionFailed(err, "stage out-slot")
	}
	if err := mem.WriteU32(outPtr, 0); err != nil {
		return nil, errors.CompressionFailed(err, "clear out-slot")
	}

	size, err := c.engine.Encode(ctx, dataPtr, cfgPtr, outPtr)
	if err != nil {
		return nil, errors.CompressionFailed(err, "foreign encode call failed")
	}
	resultPtr, err := mem.ReadU32(outPtr)
	if err != nil {
		return nil, errors.CompressionFailed(err, "read out-slot")
	}
	if size == 0 || resultPtr == 0 {
		return nil, errors.CompressionFailed(nil, "engine returned null or zero size")
	}

	// Copy out before the exactly-once free; the view into engine memory
	// is dead after it.
	payload, err := c.copyOutAndFree(ctx, mem, resultPtr, size)
	if err != nil {
		return nil, errors.CompressionFailed(err, "repatriate compressed buffer")
	}

	c.logger.Debug("encoded grid",
		zap.Int("elements", len(elems)),
		zap.Uint32("raw_bytes", dataSize),
		zap.Int("compressed_bytes", len(payload)),
		zap.Float32("base_ratio", p.BaseRatio),
		zap.Stringer("residual", p.Residual.Kind()))

	return payload, nil
}

// DecodeInto decompresses payload into the caller-owned grid out. The grid's
// shape is the caller's declared expectation: if the engine produces a
// different element count, DecodeInto fails without writing anything into
// out.
func (c *Codec) DecodeInto(ctx context.Context, payload []byte, out *grid.Grid) error {
	if c.engine == nil {
		return errors.DecompressionFailed(errors.NotInitialized("engine"), "codec has no engine")
	}
	if err := validateDecodeInput(payload); err != nil {
		return err
	}
	if out == nil {
		return errors.InvalidInput(errors.PhaseValidate, "output grid is nil")
	}

	staging := engine.NewAllocationList()
	defer staging.FreeAndRelease(ctx, c.engine)

	mem := c.engine.Memory()

	// Defensive copy of the compressed bytes, same in-place destruction
	// hazard as encode.
	dataPtr, err := c.stage(ctx, staging, uint32(len(payload)))
	if err != nil {
		return errors.DecompressionFailed(err, "stage compressed buffer")
	}
	if err := mem.Write(dataPtr, payload); err != nil {
		return errors.DecompressionFailed(err, "copy payload into engine memory")
	}

	outPtr, err := c.stage(ctx, staging, engine.PointerSize)
	if err != nil {
		return errors.DecompressionFailed(err, "stage out-slot")
	}
	if err := mem.WriteU32(outPtr, 0); err != nil {
		return errors.DecompressionFailed(err, "clear out-slot")
	}

	count, err := c.engine.Decode(ctx, dataPtr, uint32(len(payload)), outPtr)
	if err != nil {
		return errors.DecompressionFailed(err, "foreign decode call failed")
	}
	resultPtr, err := mem.ReadU32(outPtr)
	if err != nil {
		return errors.DecompressionFailed(err, "read out-slot")
	}
	if count == 0 || resultPtr == 0 {
		return errors.DecompressionFailed(nil, "engine returned null or zero size")
	}

	raw, err := c.copyOutAndFree(ctx, mem, resultPtr, count*engine.ElementSize)
	if err != nil {
		return errors.DecompressionFailed(err, "repatriate decompressed buffer")
	}

	// Shape check before anything touches caller storage: a failed decode
	// never partially overwrites the output grid.
	if int(count) != out.Len() {
		frames, height, width := out.Dims()
		return errors.InvalidInput(errors.PhaseDecode,
			"decompressed data should fill shape (%d, %d, %d) = %d elements but engine produced %d",
			frames, height, width, out.Len(), count)
	}

	dst := out.Data()
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	c.logger.Debug("decoded payload",
		zap.Int("compressed_bytes", len(payload)),
		zap.Uint32("elements", count))

	return nil
}

// stage allocates a tracked staging block in engine memory.
func (c *Codec) stage(ctx context.Context, staging *engine.AllocationList, size uint32) (uint32, error) {
	ptr, err := c.engine.Alloc(ctx, size)
	if err != nil {
		return 0, err
	}
	staging.Add(ptr, size)
	return ptr, nil
}

// copyOutAndFree takes custody of an engine-allocated buffer: copies size
// bytes into Go-owned memory, then frees the buffer exactly once. The free
// happens even when the copy fails; the engine pointer is dead in every
// outcome.
func (c *Codec) copyOutAndFree(ctx context.Context, mem engine.Memory, ptr, size uint32) ([]byte, error) {
	view, readErr := mem.Read(ptr, size)

	var owned []byte
	if readErr == nil {
		owned = make([]byte, size)
		copy(owned, view)
	}

	if err := c.engine.Free(ctx, ptr); err != nil {
		c.logger.Warn("failed to free engine buffer",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}

	if readErr != nil {
		return nil, readErr
	}
	return owned, nil
}

func floatsToBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
