package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"regstore/internal/domain"
)

// document is the on-disk shape shared by the YAML and JSON codecs
type document struct {
	Registers []record `yaml:"registers" json:"registers"`
}

type record struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Mutable bool   `yaml:"mutable" json:"mutable"`
	Value   any    `yaml:"value,flow,omitempty" json:"value,omitempty"`
}

func toDocument(regs []domain.Register) document {
	doc := document{Registers: make([]record, 0, len(regs))}
	for _, reg := range regs {
		doc.Registers = append(doc.Registers, toRecord(reg))
	}
	return doc
}

func toRecord(reg domain.Register) record {
	v := reg.Entry.Value
	rec := record{Name: reg.Name, Type: v.Kind().String(), Mutable: reg.Entry.Mutable}

	switch v.Kind().Class() {
	case domain.ClassText:
		rec.Value = v.Text()
	case domain.ClassBlob:
		rec.Value = base64.StdEncoding.EncodeToString(v.Bytes())
	case domain.ClassBit:
		rec.Value = v.BitValues()
	case domain.ClassSigned:
		rec.Value = v.Ints()
	case domain.ClassUnsigned:
		rec.Value = v.Uints()
	case domain.ClassReal:
		rec.Value = v.Reals()
	}
	return rec
}

func fromDocument(doc document) ([]domain.Register, error) {
	regs := make([]domain.Register, 0, len(doc.Registers))
	for i, rec := range doc.Registers {
		reg, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("register %d (%q): %w", i, rec.Name, err)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func fromRecord(rec record) (domain.Register, error) {
	if rec.Name == "" {
		return domain.Register{}, fmt.Errorf("missing register name")
	}
	kind, err := domain.ParseKind(rec.Type)
	if err != nil {
		return domain.Register{}, err
	}

	var v domain.Value
	switch kind.Class() {
	case domain.ClassNone:
		v = domain.Empty()
	case domain.ClassBlob:
		s, ok := rec.Value.(string)
		if !ok && rec.Value != nil {
			return domain.Register{}, fmt.Errorf("unstructured value must be base64 text")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return domain.Register{}, fmt.Errorf("decode unstructured value: %w", err)
		}
		v = domain.Unstructured(b)
	default:
		raw := normalizeNumbers(rec.Value)
		if raw == nil && kind == domain.KindString {
			raw = ""
		} else if raw == nil {
			raw = []any{}
		}
		var ok bool
		v, ok = domain.Coerce(kind, raw)
		if !ok {
			return domain.Register{}, fmt.Errorf("value %v is not a valid %s", rec.Value, kind)
		}
	}

	return domain.Register{Name: rec.Name, Entry: domain.Entry{Value: v, Mutable: rec.Mutable}}, nil
}

// normalizeNumbers replaces json.Number elements with the narrowest Go
// number type that holds them exactly
func normalizeNumbers(x any) any {
	switch n := x.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalizeNumbers(e)
		}
		return out
	}
	return x
}
