package domain

import (
	"reflect"
	"unicode/utf8"
)

// Convert coerces candidate into the kind and shape of existing using the
// default numeric policy. It reports false when the candidate cannot be
// represented; a failed conversion never panics.
func Convert(existing Value, candidate any) (Value, bool) {
	return ConvertWith(DefaultPolicy, existing, candidate)
}

// ConvertWith is Convert with an explicit numeric policy.
//
// A Value candidate of the same kind and length is returned as is. Other
// candidates are coerced element-wise. Bit and numeric registers keep
// their length; string and unstructured registers only keep their kind.
// An empty existing value accepts only an empty Value, and an empty Value
// never converts into anything else.
func ConvertWith(policy NumericPolicy, existing Value, candidate any) (Value, bool) {
	if existing.IsEmpty() {
		if v, ok := asValue(candidate); ok && v.IsEmpty() {
			return Empty(), true
		}
		return Value{}, false
	}
	if v, ok := asValue(candidate); ok {
		if v.IsEmpty() {
			return Value{}, false
		}
		if v.kind == existing.kind && v.Len() == existing.Len() {
			return v, v.Validate() == nil
		}
	}
	out, ok := CoerceWith(policy, existing.kind, candidate)
	if !ok {
		return Value{}, false
	}
	if existing.kind.Fixed() && out.Len() != existing.Len() {
		return Value{}, false
	}
	return out, true
}

// Coerce builds a value of the given kind from a loosely typed candidate
// without any length constraint, using the default numeric policy.
func Coerce(kind Kind, candidate any) (Value, bool) {
	return CoerceWith(DefaultPolicy, kind, candidate)
}

// CoerceWith is Coerce with an explicit numeric policy.
func CoerceWith(policy NumericPolicy, kind Kind, candidate any) (Value, bool) {
	if policy == nil {
		policy = DefaultPolicy
	}
	in, ok := loosen(candidate)
	if !ok {
		return Value{}, false
	}

	var out Value
	switch kind.Class() {
	case ClassText:
		if !in.isText {
			return Value{}, false
		}
		out = String(in.text)
	case ClassBlob:
		if !in.isBlob {
			return Value{}, false
		}
		out = Unstructured(in.blob)
	case ClassBit:
		if !in.numeric() {
			return Value{}, false
		}
		bits := make([]bool, len(in.scalars))
		for i, s := range in.scalars {
			if bits[i], ok = policy.Bit(s); !ok {
				return Value{}, false
			}
		}
		out = Value{kind: kind, bits: bits}
	case ClassSigned:
		if !in.numeric() {
			return Value{}, false
		}
		ints := make([]int64, len(in.scalars))
		for i, s := range in.scalars {
			if ints[i], ok = policy.Signed(s, kind.Bits()); !ok {
				return Value{}, false
			}
		}
		out = Value{kind: kind, ints: ints}
	case ClassUnsigned:
		if !in.numeric() {
			return Value{}, false
		}
		uints := make([]uint64, len(in.scalars))
		for i, s := range in.scalars {
			if uints[i], ok = policy.Unsigned(s, kind.Bits()); !ok {
				return Value{}, false
			}
		}
		out = Value{kind: kind, uints: uints}
	case ClassReal:
		if !in.numeric() {
			return Value{}, false
		}
		reals := make([]float64, len(in.scalars))
		for i, s := range in.scalars {
			if reals[i], ok = policy.Real(s, kind.Bits()); !ok {
				return Value{}, false
			}
		}
		out = Value{kind: kind, reals: reals}
	default:
		return Value{}, false
	}

	if out.Validate() != nil {
		return Value{}, false
	}
	return out, true
}

func asValue(candidate any) (Value, bool) {
	switch c := candidate.(type) {
	case Value:
		return c, true
	case *Value:
		if c == nil {
			return Value{}, true
		}
		return *c, true
	case Entry:
		return c.Value, true
	}
	return Value{}, false
}

// loose is a candidate flattened into one of three shapes
type loose struct {
	isText  bool
	text    string
	isBlob  bool
	blob    []byte
	scalars []Scalar
}

// numeric reports whether the candidate is a sequence of scalars. Byte
// slices count as unsigned scalars so natural8 registers accept them.
func (l *loose) numeric() bool {
	return !l.isText
}

func loosen(candidate any) (*loose, bool) {
	if v, ok := asValue(candidate); ok {
		switch v.kind.Class() {
		case ClassNone:
			return nil, false
		case ClassText:
			return &loose{isText: true, text: v.text}, true
		case ClassBlob:
			return blobLoose(v.blob), true
		default:
			return &loose{scalars: v.Scalars()}, true
		}
	}

	switch c := candidate.(type) {
	case nil:
		return nil, false
	case string:
		if !utf8.ValidString(c) {
			return nil, false
		}
		return &loose{isText: true, text: c}, true
	case []byte:
		return blobLoose(c), true
	}

	if s, ok := scalarOf(candidate); ok {
		return &loose{scalars: []Scalar{s}}, true
	}

	rv := reflect.ValueOf(candidate)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	scalars := make([]Scalar, rv.Len())
	for i := range scalars {
		s, ok := scalarOf(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		scalars[i] = s
	}
	return &loose{scalars: scalars}, true
}

func blobLoose(b []byte) *loose {
	scalars := make([]Scalar, len(b))
	for i, x := range b {
		scalars[i] = UintScalar(uint64(x))
	}
	return &loose{isBlob: true, blob: b, scalars: scalars}
}

func scalarOf(x any) (Scalar, bool) {
	switch n := x.(type) {
	case bool:
		return BoolScalar(n), true
	case int:
		return IntScalar(int64(n)), true
	case int8:
		return IntScalar(int64(n)), true
	case int16:
		return IntScalar(int64(n)), true
	case int32:
		return IntScalar(int64(n)), true
	case int64:
		return IntScalar(n), true
	case uint:
		return UintScalar(uint64(n)), true
	case uint8:
		return UintScalar(uint64(n)), true
	case uint16:
		return UintScalar(uint64(n)), true
	case uint32:
		return UintScalar(uint64(n)), true
	case uint64:
		return UintScalar(n), true
	case float32:
		return FloatScalar(float64(n)), true
	case float64:
		return FloatScalar(n), true
	case Scalar:
		return n, true
	}
	return Scalar{}, false
}
