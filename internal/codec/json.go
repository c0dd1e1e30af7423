package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"regstore/internal/domain"
)

// JSONCodec handles JSON register documents
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports registers from JSON. Numbers are decoded exactly so 64-bit
// integers survive.
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Register, error) {
	var doc document
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return fromDocument(doc)
}

// Export writes registers as JSON. Infinite and NaN reals cannot be encoded.
func (c *JSONCodec) Export(regs []domain.Register, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(toDocument(regs)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
