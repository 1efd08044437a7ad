package pairingimport

import (
	"fmt"
	"strings"
)

// Parser decodes an uploaded pairing sheet into imported pairings.
type Parser interface {
	Parse(data []byte) ([]ImportedPairing, error)
}

// ParserFactory selects a parser for an uploaded file.
type ParserFactory interface {
	GetParser(filename string) (Parser, error)
}

// Factory creates the appropriate parser based on file extension.
type Factory struct{}

// NewFactory creates a new parser factory.
func NewFactory() *Factory {
	return &Factory{}
}

// GetParser returns the appropriate parser for the given filename.
func (f *Factory) GetParser(filename string) (Parser, error) {
	ext := strings.ToLower(fileExtension(filename))

	switch ext {
	case ".csv":
		return NewCSVParser(), nil
	case ".xlsx", ".xls":
		return NewXLSXParser(), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func fileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return ""
	}
	return filename[idx:]
}
