package domain

import "fmt"

// Kind identifies which variant of a Value is populated
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindUnstructured
	KindBit
	KindInteger64
	KindInteger32
	KindInteger16
	KindInteger8
	KindNatural64
	KindNatural32
	KindNatural16
	KindNatural8
	KindReal64
	KindReal32
	KindReal16

	kindCount
)

// Class groups kinds that share an element representation
type Class uint8

const (
	ClassNone Class = iota
	ClassText
	ClassBlob
	ClassBit
	ClassSigned
	ClassUnsigned
	ClassReal
)

var kindNames = [kindCount]string{
	KindEmpty:        "empty",
	KindString:       "string",
	KindUnstructured: "unstructured",
	KindBit:          "bit",
	KindInteger64:    "integer64",
	KindInteger32:    "integer32",
	KindInteger16:    "integer16",
	KindInteger8:     "integer8",
	KindNatural64:    "natural64",
	KindNatural32:    "natural32",
	KindNatural16:    "natural16",
	KindNatural8:     "natural8",
	KindReal64:       "real64",
	KindReal32:       "real32",
	KindReal16:       "real16",
}

// String returns the lowercase kind name
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the enumerated kinds
func (k Kind) Valid() bool {
	return k < kindCount
}

// ParseKind maps a kind name back to its Kind
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindEmpty, fmt.Errorf("unknown value kind %q", s)
}

// Class returns the element class of the kind
func (k Kind) Class() Class {
	switch k {
	case KindString:
		return ClassText
	case KindUnstructured:
		return ClassBlob
	case KindBit:
		return ClassBit
	case KindInteger64, KindInteger32, KindInteger16, KindInteger8:
		return ClassSigned
	case KindNatural64, KindNatural32, KindNatural16, KindNatural8:
		return ClassUnsigned
	case KindReal64, KindReal32, KindReal16:
		return ClassReal
	default:
		return ClassNone
	}
}

// Bits returns the element width in bits, 0 for non-numeric kinds
func (k Kind) Bits() int {
	switch k {
	case KindBit:
		return 1
	case KindInteger64, KindNatural64, KindReal64:
		return 64
	case KindInteger32, KindNatural32, KindReal32:
		return 32
	case KindInteger16, KindNatural16, KindReal16:
		return 16
	case KindInteger8, KindNatural8, KindString, KindUnstructured:
		return 8
	default:
		return 0
	}
}

// Capacity returns the maximum number of elements a value of this kind holds.
// For string and unstructured values this is a byte count.
func (k Kind) Capacity() int {
	switch k {
	case KindString, KindUnstructured:
		return 256
	case KindBit:
		return 2048
	case KindEmpty:
		return 0
	default:
		// 2048 bits worth of elements
		return 2048 / k.Bits()
	}
}

// Fixed reports whether the array length is part of a register's identity
func (k Kind) Fixed() bool {
	switch k.Class() {
	case ClassBit, ClassSigned, ClassUnsigned, ClassReal:
		return true
	default:
		return false
	}
}
