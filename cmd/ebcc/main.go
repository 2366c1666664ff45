package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/ebcc/codec"
	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/grid"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to the EBCC wasm engine module")
		encodeFile  = flag.String("encode", "", "Raw little-endian float32 file to compress")
		decodeFile  = flag.String("decode", "", "Compressed file to decompress")
		outFile     = flag.String("out", "", "Output file")
		dimsStr     = flag.String("dims", "", "Grid dimensions as FRAMESxHEIGHTxWIDTH, e.g. 1x721x1440")
		ratio       = flag.Float64("ratio", 10.0, "Base compression ratio")
		mode        = flag.String("mode", "base", "Residual mode: base, abs, or rel")
		bound       = flag.Float64("bound", 0.01, "Error bound for abs/rel modes")
		memPages    = flag.Uint("mem-pages", 0, "Engine memory limit in 64KB pages (0 = default)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: ebcc -wasm <engine.wasm> -encode <in.f32> -dims FxHxW -out <file> [flags]")
		fmt.Fprintln(os.Stderr, "       ebcc -wasm <engine.wasm> -decode <in.ebcc> -dims FxHxW -out <file>")
		fmt.Fprintln(os.Stderr, "       ebcc -wasm <engine.wasm> -encode <in.f32> -dims FxHxW -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, *encodeFile, *dimsStr, uint32(*memPages)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *encodeFile, *decodeFile, *outFile, *dimsStr,
		float32(*ratio), *mode, float32(*bound), uint32(*memPages)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, encodeFile, decodeFile, outFile, dimsStr string, ratio float32, mode string, bound float32, memPages uint32) error {
	if (encodeFile == "") == (decodeFile == "") {
		return fmt.Errorf("exactly one of -encode or -decode is required")
	}
	if outFile == "" {
		return fmt.Errorf("-out is required")
	}

	frames, height, width, err := parseDims(dimsStr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	eng, err := newEngine(ctx, wasmFile, memPages)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	c := codec.New(eng)

	if encodeFile != "" {
		policy, err := buildPolicy(ratio, mode, bound)
		if err != nil {
			return err
		}
		g, err := readGrid(encodeFile, frames, height, width)
		if err != nil {
			return err
		}
		payload, err := c.Encode(ctx, g, policy)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outFile, payload, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		rawSize := g.Len() * 4
		fmt.Printf("Compressed %d bytes to %d bytes (%.2fx)\n",
			rawSize, len(payload), float64(rawSize)/float64(len(payload)))
		return nil
	}

	payload, err := os.ReadFile(decodeFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	out, err := grid.New(frames, height, width)
	if err != nil {
		return err
	}
	if err := c.DecodeInto(ctx, payload, out); err != nil {
		return err
	}
	if err := writeGrid(outFile, out); err != nil {
		return err
	}
	fmt.Printf("Decompressed %d bytes to %s (%d bytes)\n", len(payload), out, out.Len()*4)
	return nil
}

func newEngine(ctx context.Context, wasmFile string, memPages uint32) (*engine.WazeroEngine, error) {
	wasmBytes, err := os.ReadFile(wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read engine module: %w", err)
	}
	var cfg *engine.Config
	if memPages > 0 {
		cfg = &engine.Config{MemoryLimitPages: memPages}
	}
	return engine.NewWazeroEngine(ctx, wasmBytes, cfg)
}

func buildPolicy(ratio float32, mode string, bound float32) (codec.Policy, error) {
	switch mode {
	case "base":
		return codec.BaseOnlyPolicy(ratio), nil
	case "abs":
		return codec.AbsoluteErrorPolicy(ratio, bound), nil
	case "rel":
		return codec.RelativeErrorPolicy(ratio, bound), nil
	default:
		return codec.Policy{}, fmt.Errorf("unknown mode %q: want base, abs, or rel", mode)
	}
}

func parseDims(s string) (frames, height, width int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("-dims must be FRAMESxHEIGHTxWIDTH, got %q", s)
	}
	dims := make([]int, 3)
	for i, p := range parts {
		dims[i], err = strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("bad dimension %q in %q", p, s)
		}
	}
	return dims[0], dims[1], dims[2], nil
}

func readGrid(path string, frames, height, width int) (*grid.Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if want := frames * height * width * 4; len(raw) != want {
		return nil, fmt.Errorf("input is %d bytes, dims %dx%dx%d require %d", len(raw), frames, height, width, want)
	}
	data := make([]float32, frames*height*width)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return grid.FromSlice(frames, height, width, data)
}

func writeGrid(path string, g *grid.Grid) error {
	raw := make([]byte, g.Len()*4)
	for i, v := range g.Data() {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
