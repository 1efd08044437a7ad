package pairingimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// CSVParser parses CSV pairing sheets.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse parses CSV data and returns the imported pairings.
func (p *CSVParser) Parse(data []byte) ([]ImportedPairing, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		rows = append(rows, record)
	}

	return pairingsFromRows(rows)
}

// Sheet columns, matched by header name.
const (
	colPlayer1ID    = "player1_id"
	colPlayer1Name  = "player1_name"
	colPlayer1Round = "player1_round_score"
	colPlayer1Total = "player1_total_score"
	colPlayer2ID    = "player2_id"
	colPlayer2Name  = "player2_name"
	colPlayer2Round = "player2_round_score"
	colPlayer2Total = "player2_total_score"
	colOriginTable  = "origin_table_number"
)

// pairingsFromRows converts a header row plus data rows into imported
// pairings. Shared by the CSV and XLSX parsers.
func pairingsFromRows(rows [][]string) ([]ImportedPairing, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("pairing sheet is empty")
	}

	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[colPlayer1ID]; !ok {
		return nil, fmt.Errorf("pairing sheet has no %s column", colPlayer1ID)
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var pairings []ImportedPairing
	for i, row := range rows[1:] {
		line := i + 2

		p1ID := cell(row, colPlayer1ID)
		if p1ID == "" {
			continue
		}

		pairing := ImportedPairing{
			Player1: ImportedPlayer{
				ID:   sharedtypes.PlayerID(p1ID),
				Name: sharedtypes.PlayerName(cell(row, colPlayer1Name)),
			},
		}

		var err error
		if pairing.Player1.RoundScore, err = scoreCell(cell(row, colPlayer1Round)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if pairing.Player1.TotalScore, err = scoreCell(cell(row, colPlayer1Total)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if p2ID := cell(row, colPlayer2ID); p2ID != "" {
			player2 := ImportedPlayer{
				ID:   sharedtypes.PlayerID(p2ID),
				Name: sharedtypes.PlayerName(cell(row, colPlayer2Name)),
			}
			if player2.RoundScore, err = scoreCell(cell(row, colPlayer2Round)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if player2.TotalScore, err = scoreCell(cell(row, colPlayer2Total)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pairing.Player2 = &player2
		}

		if origin := cell(row, colOriginTable); origin != "" {
			n, err := strconv.Atoi(origin)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("line %d: invalid origin table number: %q", line, origin)
			}
			table := sharedtypes.TableNumber(n)
			pairing.OriginTableNumber = &table
		}

		pairings = append(pairings, pairing)
	}

	if len(pairings) == 0 {
		return nil, fmt.Errorf("no pairing rows found in sheet")
	}
	return pairings, nil
}

func scoreCell(val string) (sharedtypes.Score, error) {
	if val == "" || val == "-" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("non-numeric score value: %q", val)
	}
	return sharedtypes.Score(n), nil
}
