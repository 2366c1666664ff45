// Package ebcc provides a validated, memory-safe Go boundary around the EBCC
// lossy floating-point compressor for 3-D float32 scientific grids.
//
// EBCC (Error Bounded Climate Compressor) itself is a native codec; this
// library consumes a wasm32 build of it as an opaque engine and never
// implements compression on its own. What it does implement is the safety
// contract around the engine: request validation, defensive copy-in,
// foreign-buffer custody (copy out, then free exactly once), and a closed
// error taxonomy.
//
// # Architecture Overview
//
//	ebcc/            Root package with the shared Memory interface
//	├── codec/       Compression policies, input validation, and the
//	│                foreign-call adapter (Encode / DecodeInto)
//	├── grid/        Caller-owned 3-D float32 grid storage
//	├── engine/      The foreign engine contract, its wasm32 ABI layout,
//	│                and the wazero-backed production engine
//	├── enginetest/  In-process stand-in engine with allocation accounting
//	│                for tests
//	├── errors/      Structured error types for debugging
//	└── cmd/ebcc/    CLI for compressing raw float32 grid files
//
// # Quick Start
//
//	wasmBytes, _ := os.ReadFile("ebcc.wasm")
//	eng, err := engine.NewWazeroEngine(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	g, _ := grid.FromSlice(1, 721, 1440, values)
//	c := codec.New(eng)
//
//	payload, err := c.Encode(ctx, g, codec.AbsoluteErrorPolicy(30.0, 0.01))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, _ := grid.New(1, 721, 1440)
//	if err := c.DecodeInto(ctx, payload, out); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// The boundary is stateless: every call is a pure function of its inputs and
// the engine. Concurrent calls are safe as long as each call owns its own
// grids and payloads; the wazero engine internally serializes both foreign
// calls and linear-memory access on one mutex, because wasm instances are
// not thread-safe and memory growth can reallocate the backing buffer.
//
// # Memory
//
// Every buffer the engine allocates and hands back is copied into Go-owned
// memory and then freed, exactly once, before the call returns. Raw engine
// pointers never escape the codec package.
package ebcc
