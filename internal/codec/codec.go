package codec

import (
	"fmt"
	"io"

	"regstore/internal/domain"
)

// Importer interface for importing register documents from various formats
type Importer interface {
	Parse(r io.Reader) ([]domain.Register, error)
	Format() string
}

// Exporter interface for exporting register documents to various formats
type Exporter interface {
	Export(regs []domain.Register, w io.Writer) error
	Format() string
}

// Codec both imports and exports a document format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the document codec registered for a format name
func ForFormat(format string) (Codec, error) {
	switch format {
	case "", "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}
