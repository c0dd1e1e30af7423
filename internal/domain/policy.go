package domain

import (
	"fmt"
	"math"
	"strings"
)

// ScalarClass tags the representation held by a Scalar
type ScalarClass uint8

const (
	ScalarBool ScalarClass = iota
	ScalarInt
	ScalarUint
	ScalarFloat
)

// Scalar is one loosely typed element of a conversion candidate
type Scalar struct {
	Class ScalarClass
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
}

func BoolScalar(b bool) Scalar     { return Scalar{Class: ScalarBool, Bool: b} }
func IntScalar(i int64) Scalar     { return Scalar{Class: ScalarInt, Int: i} }
func UintScalar(u uint64) Scalar   { return Scalar{Class: ScalarUint, Uint: u} }
func FloatScalar(f float64) Scalar { return Scalar{Class: ScalarFloat, Float: f} }

// AsFloat returns the scalar as a float64, possibly losing precision
func (s Scalar) AsFloat() float64 {
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			return 1
		}
		return 0
	case ScalarInt:
		return float64(s.Int)
	case ScalarUint:
		return float64(s.Uint)
	default:
		return s.Float
	}
}

func (s Scalar) isZero() bool {
	switch s.Class {
	case ScalarBool:
		return !s.Bool
	case ScalarInt:
		return s.Int == 0
	case ScalarUint:
		return s.Uint == 0
	default:
		return s.Float == 0
	}
}

// NumericPolicy decides how a scalar is narrowed or widened into an element
// of a target kind. Each method reports false when the scalar cannot be
// represented under the policy.
type NumericPolicy interface {
	Signed(s Scalar, bits int) (int64, bool)
	Unsigned(s Scalar, bits int) (uint64, bool)
	Real(s Scalar, bits int) (float64, bool)
	Bit(s Scalar) (bool, bool)
	Name() string
}

// Built-in policies
var (
	// Reject accepts only scalars exactly representable in the target kind
	Reject NumericPolicy = rejectPolicy{}
	// Saturate clamps to the target range and truncates fractions toward zero
	Saturate NumericPolicy = saturatePolicy{}
	// Wrap truncates to the target width using two's-complement arithmetic
	Wrap NumericPolicy = wrapPolicy{}
)

// DefaultPolicy is used by Convert and Coerce
var DefaultPolicy = Reject

// ParsePolicy returns the built-in policy with the given name
func ParsePolicy(name string) (NumericPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reject":
		return Reject, nil
	case "saturate":
		return Saturate, nil
	case "wrap":
		return Wrap, nil
	default:
		return nil, fmt.Errorf("unknown numeric policy %q", name)
	}
}

func signedRange(bits int) (int64, int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
}

func unsignedMax(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return uint64(1)<<bits - 1
}

func realMax(bits int) float64 {
	switch {
	case bits <= 16:
		return maxHalf
	case bits <= 32:
		return math.MaxFloat32
	default:
		return math.MaxFloat64
	}
}

// roundReal rounds f to the precision of the target width
func roundReal(f float64, bits int) float64 {
	switch {
	case bits <= 16:
		return clampHalf(f)
	case bits <= 32:
		return float64(float32(f))
	default:
		return f
	}
}

// 2^63 as a float64; int64 holds [-2^63, 2^63)
const twoTo63 = 9223372036854775808.0

type rejectPolicy struct{}

func (rejectPolicy) Name() string { return "reject" }

func (rejectPolicy) Signed(s Scalar, bits int) (int64, bool) {
	lo, hi := signedRange(bits)
	var i int64
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			i = 1
		}
	case ScalarInt:
		i = s.Int
	case ScalarUint:
		if s.Uint > uint64(hi) {
			return 0, false
		}
		i = int64(s.Uint)
	case ScalarFloat:
		f := s.Float
		if f != math.Trunc(f) || f < -twoTo63 || f >= twoTo63 {
			return 0, false
		}
		i = int64(f)
	}
	if i < lo || i > hi {
		return 0, false
	}
	return i, true
}

func (rejectPolicy) Unsigned(s Scalar, bits int) (uint64, bool) {
	var u uint64
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			u = 1
		}
	case ScalarInt:
		if s.Int < 0 {
			return 0, false
		}
		u = uint64(s.Int)
	case ScalarUint:
		u = s.Uint
	case ScalarFloat:
		f := s.Float
		if f != math.Trunc(f) || f < 0 || f >= 2*twoTo63 {
			return 0, false
		}
		u = uint64(f)
	}
	if u > unsignedMax(bits) {
		return 0, false
	}
	return u, true
}

func (rejectPolicy) Real(s Scalar, bits int) (float64, bool) {
	f := s.AsFloat()
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > realMax(bits) {
		return 0, false
	}
	return roundReal(f, bits), true
}

func (rejectPolicy) Bit(s Scalar) (bool, bool) {
	switch s.Class {
	case ScalarBool:
		return s.Bool, true
	case ScalarInt:
		return s.Int == 1, s.Int == 0 || s.Int == 1
	case ScalarUint:
		return s.Uint == 1, s.Uint <= 1
	default:
		return s.Float == 1, s.Float == 0 || s.Float == 1
	}
}

type saturatePolicy struct{}

func (saturatePolicy) Name() string { return "saturate" }

func (saturatePolicy) Signed(s Scalar, bits int) (int64, bool) {
	lo, hi := signedRange(bits)
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			return 1, true
		}
		return 0, true
	case ScalarInt:
		return min(max(s.Int, lo), hi), true
	case ScalarUint:
		if s.Uint > uint64(hi) {
			return hi, true
		}
		return int64(s.Uint), true
	default:
		f := math.Trunc(s.Float)
		switch {
		case math.IsNaN(f):
			return 0, false
		case f <= float64(lo):
			return lo, true
		case f >= float64(hi):
			return hi, true
		}
		return int64(f), true
	}
}

func (saturatePolicy) Unsigned(s Scalar, bits int) (uint64, bool) {
	hi := unsignedMax(bits)
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			return 1, true
		}
		return 0, true
	case ScalarInt:
		if s.Int < 0 {
			return 0, true
		}
		return min(uint64(s.Int), hi), true
	case ScalarUint:
		return min(s.Uint, hi), true
	default:
		f := math.Trunc(s.Float)
		switch {
		case math.IsNaN(f):
			return 0, false
		case f <= 0:
			return 0, true
		case f >= float64(hi):
			return hi, true
		}
		return uint64(f), true
	}
}

func (saturatePolicy) Real(s Scalar, bits int) (float64, bool) {
	f, limit := s.AsFloat(), realMax(bits)
	switch {
	case math.IsNaN(f):
		return f, true
	case f > limit:
		return limit, true
	case f < -limit:
		return -limit, true
	}
	return roundReal(f, bits), true
}

func (saturatePolicy) Bit(s Scalar) (bool, bool) {
	if s.Class == ScalarFloat && math.IsNaN(s.Float) {
		return false, false
	}
	return !s.isZero(), true
}

type wrapPolicy struct{}

func (wrapPolicy) Name() string { return "wrap" }

func wrapBits(s Scalar) (uint64, bool) {
	switch s.Class {
	case ScalarBool:
		if s.Bool {
			return 1, true
		}
		return 0, true
	case ScalarInt:
		return uint64(s.Int), true
	case ScalarUint:
		return s.Uint, true
	default:
		f := math.Trunc(s.Float)
		if math.IsNaN(f) || f < -twoTo63 || f >= 2*twoTo63 {
			return 0, false
		}
		if f < 0 {
			return uint64(int64(f)), true
		}
		return uint64(f), true
	}
}

func (wrapPolicy) Signed(s Scalar, bits int) (int64, bool) {
	u, ok := wrapBits(s)
	if !ok {
		return 0, false
	}
	shift := 64 - uint(bits)
	return int64(u<<shift) >> shift, true
}

func (wrapPolicy) Unsigned(s Scalar, bits int) (uint64, bool) {
	u, ok := wrapBits(s)
	if !ok {
		return 0, false
	}
	return u & unsignedMax(bits), true
}

func (wrapPolicy) Real(s Scalar, bits int) (float64, bool) {
	return roundReal(s.AsFloat(), bits), true
}

func (wrapPolicy) Bit(s Scalar) (bool, bool) {
	return saturatePolicy{}.Bit(s)
}
