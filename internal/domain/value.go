package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ErrCapacity is returned by Validate when a value holds more elements than its kind allows
var ErrCapacity = errors.New("value exceeds kind capacity")

// ErrInvalidText is returned by Validate for string values that are not valid UTF-8
var ErrInvalidText = errors.New("string value is not valid UTF-8")

// Value is the typed payload of a register. Exactly one variant is
// populated; the zero Value is empty. Values are immutable: constructors
// copy their input and accessors return copies.
//
// Numeric elements are stored widened (int64, uint64, float64). The
// constructors for narrower kinds only accept Go types of that width so
// every stored element is representable in its kind.
type Value struct {
	kind  Kind
	text  string
	blob  []byte
	bits  []bool
	ints  []int64
	uints []uint64
	reals []float64
}

// Empty returns the empty value
func Empty() Value { return Value{} }

// String creates a string value
func String(s string) Value { return Value{kind: KindString, text: s} }

// Unstructured creates an opaque byte value
func Unstructured(b []byte) Value {
	return Value{kind: KindUnstructured, blob: append([]byte{}, b...)}
}

// Bits creates a bit array value
func Bits(v ...bool) Value {
	return Value{kind: KindBit, bits: append([]bool{}, v...)}
}

// Integer64 creates a signed 64-bit array value
func Integer64(v ...int64) Value { return signedValue(KindInteger64, v) }

// Integer32 creates a signed 32-bit array value
func Integer32(v ...int32) Value { return signedValue(KindInteger32, v) }

// Integer16 creates a signed 16-bit array value
func Integer16(v ...int16) Value { return signedValue(KindInteger16, v) }

// Integer8 creates a signed 8-bit array value
func Integer8(v ...int8) Value { return signedValue(KindInteger8, v) }

// Natural64 creates an unsigned 64-bit array value
func Natural64(v ...uint64) Value { return unsignedValue(KindNatural64, v) }

// Natural32 creates an unsigned 32-bit array value
func Natural32(v ...uint32) Value { return unsignedValue(KindNatural32, v) }

// Natural16 creates an unsigned 16-bit array value
func Natural16(v ...uint16) Value { return unsignedValue(KindNatural16, v) }

// Natural8 creates an unsigned 8-bit array value
func Natural8(v ...uint8) Value { return unsignedValue(KindNatural8, v) }

// Real64 creates a double-precision array value
func Real64(v ...float64) Value { return realValue(KindReal64, v) }

// Real32 creates a single-precision array value
func Real32(v ...float32) Value { return realValue(KindReal32, v) }

// Real16 creates a half-precision array. Elements are kept at float32
// precision; values beyond the half-precision range become infinite.
func Real16(v ...float32) Value {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = clampHalf(float64(x))
	}
	return Value{kind: KindReal16, reals: out}
}

func signedValue[T int8 | int16 | int32 | int64](k Kind, v []T) Value {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return Value{kind: k, ints: out}
}

func unsignedValue[T uint8 | uint16 | uint32 | uint64](k Kind, v []T) Value {
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return Value{kind: k, uints: out}
}

func realValue[T float32 | float64](k Kind, v []T) Value {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return Value{kind: k, reals: out}
}

// Kind returns the populated variant
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether no variant is populated
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Len returns the element count; bytes for string and unstructured values
func (v Value) Len() int {
	switch v.kind.Class() {
	case ClassText:
		return len(v.text)
	case ClassBlob:
		return len(v.blob)
	case ClassBit:
		return len(v.bits)
	case ClassSigned:
		return len(v.ints)
	case ClassUnsigned:
		return len(v.uints)
	case ClassReal:
		return len(v.reals)
	default:
		return 0
	}
}

// Text returns the string payload, empty for other kinds
func (v Value) Text() string { return v.text }

// Bytes returns a copy of the unstructured payload
func (v Value) Bytes() []byte { return append([]byte(nil), v.blob...) }

// BitValues returns a copy of the bit array
func (v Value) BitValues() []bool { return append([]bool(nil), v.bits...) }

// Ints returns a copy of the elements of an integer kind
func (v Value) Ints() []int64 { return append([]int64(nil), v.ints...) }

// Uints returns a copy of the elements of a natural kind
func (v Value) Uints() []uint64 { return append([]uint64(nil), v.uints...) }

// Reals returns a copy of the elements of a real kind
func (v Value) Reals() []float64 { return append([]float64(nil), v.reals...) }

// Validate checks capacity limits and text encoding
func (v Value) Validate() error {
	if !v.kind.Valid() {
		return fmt.Errorf("invalid value kind %d", uint8(v.kind))
	}
	if v.kind == KindString && !utf8.ValidString(v.text) {
		return ErrInvalidText
	}
	if n, limit := v.Len(), v.kind.Capacity(); n > limit {
		return fmt.Errorf("%s holds %d elements, limit %d: %w", v.kind, n, limit, ErrCapacity)
	}
	return nil
}

// Equal reports whether both values have the same kind and elements.
// Real elements compare bitwise so NaN equals NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.Len() != o.Len() {
		return false
	}
	switch v.kind.Class() {
	case ClassText:
		return v.text == o.text
	case ClassBlob:
		return string(v.blob) == string(o.blob)
	case ClassBit:
		for i := range v.bits {
			if v.bits[i] != o.bits[i] {
				return false
			}
		}
	case ClassSigned:
		for i := range v.ints {
			if v.ints[i] != o.ints[i] {
				return false
			}
		}
	case ClassUnsigned:
		for i := range v.uints {
			if v.uints[i] != o.uints[i] {
				return false
			}
		}
	case ClassReal:
		for i := range v.reals {
			if math.Float64bits(v.reals[i]) != math.Float64bits(o.reals[i]) {
				return false
			}
		}
	}
	return true
}

// String renders the value for logs, e.g. natural16[1 2 3]
func (v Value) String() string {
	var b strings.Builder
	b.WriteString(v.kind.String())
	switch v.kind.Class() {
	case ClassNone:
		return b.String()
	case ClassText:
		fmt.Fprintf(&b, "(%q)", v.text)
		return b.String()
	case ClassBlob:
		fmt.Fprintf(&b, "(%x)", v.blob)
		return b.String()
	case ClassBit:
		fmt.Fprint(&b, v.bits)
	case ClassSigned:
		fmt.Fprint(&b, v.ints)
	case ClassUnsigned:
		fmt.Fprint(&b, v.uints)
	case ClassReal:
		fmt.Fprint(&b, v.reals)
	}
	return b.String()
}

// Scalars returns the elements of a bit or numeric value as loose scalars
func (v Value) Scalars() []Scalar {
	var out []Scalar
	switch v.kind.Class() {
	case ClassBit:
		out = make([]Scalar, len(v.bits))
		for i, x := range v.bits {
			out[i] = BoolScalar(x)
		}
	case ClassSigned:
		out = make([]Scalar, len(v.ints))
		for i, x := range v.ints {
			out[i] = IntScalar(x)
		}
	case ClassUnsigned:
		out = make([]Scalar, len(v.uints))
		for i, x := range v.uints {
			out[i] = UintScalar(x)
		}
	case ClassReal:
		out = make([]Scalar, len(v.reals))
		for i, x := range v.reals {
			out[i] = FloatScalar(x)
		}
	}
	return out
}

const maxHalf = 65504

func clampHalf(f float64) float64 {
	f = float64(float32(f))
	switch {
	case f > maxHalf:
		return math.Inf(1)
	case f < -maxHalf:
		return math.Inf(-1)
	}
	return f
}
