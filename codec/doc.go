// Package codec exposes the validated encode/decode boundary around the EBCC
// engine.
//
// The package composes three stateless pieces per call: the Policy model
// (compression configuration with validated invariants), the input validator
// (shape, size, and numeric sanity of caller data), and the foreign-call
// adapter (Codec), which owns the memory-custody protocol against the
// engine.
//
// Failure handling is non-retrying and fail-fast: validation errors are
// reported before the engine sees anything, and every foreign failure is
// terminal for that call. All errors carry one of four kinds —
// invalid_input, invalid_config, compression_failed, decompression_failed —
// see the errors package.
//
//	c := codec.New(eng)
//	payload, err := c.Encode(ctx, g, codec.AbsoluteErrorPolicy(30.0, 0.01))
//	...
//	err = c.DecodeInto(ctx, payload, out)
package codec
