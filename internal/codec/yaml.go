package codec

import (
	"fmt"
	"io"

	"regstore/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML register documents
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports registers from YAML
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Register, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return []domain.Register{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return fromDocument(doc)
}

// Export writes registers as YAML
func (c *YAMLCodec) Export(regs []domain.Register, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(toDocument(regs)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
