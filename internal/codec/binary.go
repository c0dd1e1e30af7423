package codec

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"regstore/internal/domain"
)

// ErrMalformed is returned when a blob is not a valid value serialization
var ErrMalformed = errors.New("malformed value serialization")

// MarshalValue serializes a value using the protobuf wire format.
//
// The value is a single length-delimited field whose number is the kind.
// Arrays are packed: zigzag varints for integer kinds, varints for natural
// and bit kinds, fixed64 for real64 and fixed32 for real32 and real16.
// The empty value serializes to zero bytes.
func MarshalValue(v domain.Value) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	if v.IsEmpty() {
		return []byte{}, nil
	}

	var payload []byte
	switch v.Kind().Class() {
	case domain.ClassText:
		payload = []byte(v.Text())
	case domain.ClassBlob:
		payload = v.Bytes()
	case domain.ClassBit:
		for _, b := range v.BitValues() {
			payload = protowire.AppendVarint(payload, protowire.EncodeBool(b))
		}
	case domain.ClassSigned:
		for _, i := range v.Ints() {
			payload = protowire.AppendVarint(payload, protowire.EncodeZigZag(i))
		}
	case domain.ClassUnsigned:
		for _, u := range v.Uints() {
			payload = protowire.AppendVarint(payload, u)
		}
	case domain.ClassReal:
		for _, f := range v.Reals() {
			if v.Kind() == domain.KindReal64 {
				payload = protowire.AppendFixed64(payload, math.Float64bits(f))
			} else {
				payload = protowire.AppendFixed32(payload, math.Float32bits(float32(f)))
			}
		}
	}

	b := protowire.AppendTag(nil, protowire.Number(v.Kind()), protowire.BytesType)
	return protowire.AppendBytes(b, payload), nil
}

// UnmarshalValue parses a blob produced by MarshalValue
func UnmarshalValue(b []byte) (domain.Value, error) {
	if len(b) == 0 {
		return domain.Empty(), nil
	}

	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return domain.Value{}, malformed(protowire.ParseError(n))
	}
	kind := domain.Kind(num)
	if num > math.MaxUint8 || !kind.Valid() || kind == domain.KindEmpty {
		return domain.Value{}, malformed(fmt.Errorf("unknown kind %d", num))
	}
	if typ != protowire.BytesType {
		return domain.Value{}, malformed(fmt.Errorf("unexpected wire type %d", typ))
	}
	payload, m := protowire.ConsumeBytes(b[n:])
	if m < 0 {
		return domain.Value{}, malformed(protowire.ParseError(m))
	}
	if n+m != len(b) {
		return domain.Value{}, malformed(fmt.Errorf("%d trailing bytes", len(b)-n-m))
	}

	v, err := decodePayload(kind, payload)
	if err != nil {
		return domain.Value{}, malformed(err)
	}
	if err := v.Validate(); err != nil {
		return domain.Value{}, malformed(err)
	}
	return v, nil
}

func decodePayload(kind domain.Kind, p []byte) (domain.Value, error) {
	switch kind.Class() {
	case domain.ClassText:
		return domain.String(string(p)), nil
	case domain.ClassBlob:
		return domain.Unstructured(p), nil
	case domain.ClassReal:
		return decodeReals(kind, p)
	}

	var elems []uint64
	for len(p) > 0 {
		x, n := protowire.ConsumeVarint(p)
		if n < 0 {
			return domain.Value{}, protowire.ParseError(n)
		}
		elems = append(elems, x)
		p = p[n:]
	}

	var candidate any
	switch kind.Class() {
	case domain.ClassBit:
		bits := make([]bool, len(elems))
		for i, x := range elems {
			if x > 1 {
				return domain.Value{}, fmt.Errorf("bit element %d out of range", x)
			}
			bits[i] = protowire.DecodeBool(x)
		}
		candidate = bits
	case domain.ClassSigned:
		ints := make([]int64, len(elems))
		for i, x := range elems {
			ints[i] = protowire.DecodeZigZag(x)
		}
		candidate = ints
	default:
		candidate = elems
	}

	v, ok := domain.CoerceWith(domain.Reject, kind, candidate)
	if !ok {
		return domain.Value{}, fmt.Errorf("elements out of range for %s", kind)
	}
	return v, nil
}

func decodeReals(kind domain.Kind, p []byte) (domain.Value, error) {
	var reals []float64
	for len(p) > 0 {
		if kind == domain.KindReal64 {
			x, n := protowire.ConsumeFixed64(p)
			if n < 0 {
				return domain.Value{}, protowire.ParseError(n)
			}
			reals = append(reals, math.Float64frombits(x))
			p = p[n:]
			continue
		}
		x, n := protowire.ConsumeFixed32(p)
		if n < 0 {
			return domain.Value{}, protowire.ParseError(n)
		}
		reals = append(reals, float64(math.Float32frombits(x)))
		p = p[n:]
	}

	switch kind {
	case domain.KindReal64:
		return domain.Real64(reals...), nil
	case domain.KindReal32:
		return domain.Real32(toFloat32(reals)...), nil
	default:
		return domain.Real16(toFloat32(reals)...), nil
	}
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
