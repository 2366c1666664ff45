package codec

import (
	"fmt"

	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/errors"
)

// ResidualKind discriminates the residual refinement applied atop the base
// transform layer.
type ResidualKind uint8

const (
	// ResidualBaseOnly applies no residual refinement.
	ResidualBaseOnly ResidualKind = iota
	// ResidualAbsoluteError bounds the residual layer by absolute error.
	ResidualAbsoluteError
	// ResidualRelativeError bounds the residual layer by relative error.
	ResidualRelativeError
)

func (k ResidualKind) String() string {
	switch k {
	case ResidualBaseOnly:
		return "base_only"
	case ResidualAbsoluteError:
		return "absolute_error"
	case ResidualRelativeError:
		return "relative_error"
	default:
		return fmt.Sprintf("residual(%d)", uint8(k))
	}
}

// Residual is a closed tagged value: base-only, or an error-bounded mode
// carrying its bound. Construct with BaseOnly, AbsoluteError, or
// RelativeError; the zero value is base-only.
type Residual struct {
	kind  ResidualKind
	bound float32
}

// BaseOnly selects no residual refinement.
func BaseOnly() Residual {
	return Residual{kind: ResidualBaseOnly}
}

// AbsoluteError selects a residual layer bounded by absolute error.
func AbsoluteError(bound float32) Residual {
	return Residual{kind: ResidualAbsoluteError, bound: bound}
}

// RelativeError selects a residual layer bounded by relative error.
func RelativeError(bound float32) Residual {
	return Residual{kind: ResidualRelativeError, bound: bound}
}

// Kind returns the residual discriminant.
func (r Residual) Kind() ResidualKind {
	return r.kind
}

// Bound returns the error bound; zero for base-only.
func (r Residual) Bound() float32 {
	return r.bound
}

// modeCode maps the variant onto the foreign discriminant.
func (r Residual) modeCode() uint32 {
	switch r.kind {
	case ResidualAbsoluteError:
		return engine.ResidualMaxError
	case ResidualRelativeError:
		return engine.ResidualRelativeError
	default:
		return engine.ResidualNone
	}
}

// errorScalar is the single error value the foreign record carries: the
// bound for error-bounded modes, 0 for base-only.
func (r Residual) errorScalar() float32 {
	if r.kind == ResidualBaseOnly {
		return 0
	}
	return r.bound
}

// Policy is an immutable compression policy: the target ratio for the base
// transform layer plus the residual refinement mode. It is validated on
// every encode call and never reaches the engine invalid.
type Policy struct {
	// BaseRatio is the target compression ratio of the base transform
	// layer. Must be strictly positive.
	BaseRatio float32

	// Residual selects the refinement strategy.
	Residual Residual
}

// DefaultPolicy is base-only compression at ratio 10.
func DefaultPolicy() Policy {
	return Policy{BaseRatio: 10.0, Residual: BaseOnly()}
}

// BaseOnlyPolicy compresses with the base transform layer alone.
func BaseOnlyPolicy(ratio float32) Policy {
	return Policy{BaseRatio: ratio, Residual: BaseOnly()}
}

// AbsoluteErrorPolicy bounds the maximum per-element absolute error.
func AbsoluteErrorPolicy(ratio, bound float32) Policy {
	return Policy{BaseRatio: ratio, Residual: AbsoluteError(bound)}
}

// RelativeErrorPolicy bounds the per-element relative error.
func RelativeErrorPolicy(ratio, bound float32) Policy {
	return Policy{BaseRatio: ratio, Residual: RelativeError(bound)}
}

// Validate checks the policy invariants. It is a pure predicate: no engine
// effects, same verdict every time.
func (p Policy) Validate() error {
	if p.BaseRatio <= 0 {
		return errors.InvalidConfig("base compression ratio must be positive, got %v", p.BaseRatio)
	}

	switch p.Residual.kind {
	case ResidualAbsoluteError, ResidualRelativeError:
		if p.Residual.bound <= 0 {
			return errors.InvalidConfig("%s bound must be positive, got %v",
				p.Residual.kind, p.Residual.bound)
		}
	case ResidualBaseOnly:
		// No further checks.
	default:
		return errors.InvalidConfig("unknown residual mode %d", uint8(p.Residual.kind))
	}

	return nil
}

// foreignConfig derives the foreign call record for a validated policy and
// grid shape. Pure translation, no engine effects.
func (p Policy) foreignConfig(frames, height, width int) engine.CodecConfig {
	return engine.CodecConfig{
		Dims:          [3]uint32{uint32(frames), uint32(height), uint32(width)},
		BaseRatio:     p.BaseRatio,
		ResidualMode:  p.Residual.modeCode(),
		ResidualRatio: 1.0, // placeholder for a removed codec field
		ErrorBound:    p.Residual.errorScalar(),
	}
}
