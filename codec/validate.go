package codec

import (
	"math"

	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/errors"
	"github.com/wippyai/ebcc/grid"
)

// minBlockEdge is the codec's minimum size for the last two grid dimensions.
const minBlockEdge = 32

// validateEncodeInput rejects grids the engine cannot handle: zero
// dimensions, element counts that overflow address arithmetic, edges below
// the codec's block minimum, and non-finite values. Runs entirely before any
// engine effect.
func validateEncodeInput(g *grid.Grid) error {
	if g == nil {
		return errors.InvalidInput(errors.PhaseValidate, "input grid is nil")
	}

	frames, height, width := g.Dims()
	if frames == 0 || height == 0 || width == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "all dimensions must be > 0, got (%d, %d, %d)",
			frames, height, width)
	}

	if _, err := checkedElemCount(frames, height, width); err != nil {
		return err
	}

	if height < minBlockEdge || width < minBlockEdge {
		return errors.InvalidInput(errors.PhaseValidate,
			"last two dimensions must be at least %dx%d, got %dx%d",
			minBlockEdge, minBlockEdge, height, width)
	}

	// Full O(n) scan; stops at the first violation.
	for i, v := range g.Data() {
		if f64 := float64(v); math.IsNaN(f64) || math.IsInf(f64, 0) {
			return errors.InvalidInput(errors.PhaseValidate, "non-finite value %v at index %d", v, i)
		}
	}

	return nil
}

// checkedElemCount multiplies the dimensions with overflow checks and
// verifies the byte size fits the engine's 32-bit address space. The engine
// cannot stage data its linear memory cannot address, so oversized grids are
// an input error, not an engine failure.
func checkedElemCount(frames, height, width int) (int, error) {
	total := frames
	for _, d := range [2]int{height, width} {
		if d != 0 && total > math.MaxInt/d {
			return 0, errors.InvalidInput(errors.PhaseValidate, "dimension product overflows")
		}
		total *= d
	}
	if total > math.MaxUint32/engine.ElementSize {
		return 0, errors.InvalidInput(errors.PhaseValidate,
			"data too large for engine address space: %d elements", total)
	}
	return total, nil
}

// validateDecodeInput rejects empty payloads and payloads beyond the
// engine's address space before any engine effect.
func validateDecodeInput(payload []byte) error {
	if len(payload) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "compressed data is empty")
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return errors.InvalidInput(errors.PhaseValidate,
			"compressed data too large for engine address space: %d bytes", len(payload))
	}
	return nil
}
