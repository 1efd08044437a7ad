package pairingimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser parses XLSX pairing sheets.
type XLSXParser struct{}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

// Parse parses XLSX data and returns the imported pairings. Only the first
// sheet is read.
func (p *XLSXParser) Parse(data []byte) ([]ImportedPairing, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "zip: not a valid zip file") {
			return nil, fmt.Errorf("failed to open XLSX file: %w. (Hint: if this is a CSV file, give it a .csv extension)", err)
		}
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return pairingsFromRows(rows)
}
