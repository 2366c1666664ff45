package engine

import (
	"context"

	ebcc "github.com/wippyai/ebcc"
)

type Memory = ebcc.Memory

// Engine is the foreign codec contract: the EBCC encode/decode/free symbol
// set lifted over a 32-bit engine-owned address space. The production
// implementation is WazeroEngine; tests substitute enginetest.Engine.
//
// Pointers returned by Alloc and captured from out-slots are offsets into the
// engine's linear memory. They are only meaningful to the engine that issued
// them and must each be released with exactly one Free call.
type Engine interface {
	// Alloc reserves size bytes in engine memory and returns its address.
	Alloc(ctx context.Context, size uint32) (uint32, error)

	// Free releases engine memory: both blocks obtained from Alloc and
	// buffers the codec allocated itself and handed back through an
	// out-slot.
	Free(ctx context.Context, ptr uint32) error

	// Memory exposes the engine's linear memory for copy-in and copy-out.
	Memory() Memory

	// Encode invokes the foreign encode routine. dataPtr addresses a
	// mutable element buffer the engine may destroy in place, configPtr a
	// marshalled CodecConfig record, and outPtr a 4-byte slot the engine
	// writes its result pointer into. Returns the compressed byte count;
	// zero together with a null out pointer signals failure.
	Encode(ctx context.Context, dataPtr, configPtr, outPtr uint32) (uint32, error)

	// Decode invokes the foreign decode routine. dataPtr addresses a
	// mutable compressed byte buffer of dataLen bytes, outPtr a 4-byte
	// result pointer slot. Returns the decompressed element count; zero
	// together with a null out pointer signals failure.
	Decode(ctx context.Context, dataPtr, dataLen, outPtr uint32) (uint32, error)

	// Close releases the engine. No calls may follow.
	Close(ctx context.Context) error
}
