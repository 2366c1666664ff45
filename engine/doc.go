// Package engine defines the foreign codec contract and its production
// implementation.
//
// The EBCC codec is consumed as a wasm32 core module with a fixed C-style
// symbol set:
//
//	ebcc_encode(data *f32, config *codec_config_t, out **u8) -> u32
//	ebcc_decode(data *u8, len u32, out **f32) -> u32
//	free_buffer(ptr)
//	malloc(size) -> ptr
//
// Both codec routines signal failure by returning zero and leaving the
// out-slot null; they expose no structured diagnostics. Buffers they
// allocate and hand back through the out-slot are owned by the caller of
// this package until released with exactly one Free.
//
// The Engine interface lifts that symbol set over a 32-bit engine-owned
// address space so the codec adapter can be tested against an in-process
// stand-in (see the enginetest package) and shipped against WazeroEngine,
// which hosts the real codec build under wazero with WASI preview1.
//
// CodecConfig pins the codec_config_t record layout. The record's
// residual_cr field belongs to a removed codec feature; this package always
// writes 1.0 there. If the codec contract ever revives the field, Marshal is
// the single place to change.
package engine
