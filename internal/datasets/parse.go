package datasets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFile is returned for files that are neither xlsx nor csv.
var ErrUnsupportedFile = errors.New("unsupported file type")

// table is a raw parsed sheet: trimmed headers plus string cells. Completely
// empty rows are dropped during parsing.
type table struct {
	headers []string
	rows    [][]string
}

func parseTable(data []byte, fileName string) (*table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls":
		return parseExcel(data)
	case ".csv":
		return parseCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .xlsx, .xls, .csv)", ErrUnsupportedFile, filepath.Ext(fileName))
	}
}

func parseExcel(data []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tableFromRows(rows)
}

func parseCSV(data []byte) (*table, error) {
	// Delimiter sniffing: comma, semicolon, tab, pipe, first one that yields
	// more than one column wins.
	for _, delim := range []rune{',', ';', '\t', '|'} {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			continue
		}
		if len(records) > 0 && len(records[0]) > 1 {
			return tableFromRows(records)
		}
	}
	return nil, errors.New("could not parse csv: no delimiter produced multiple columns")
}

func tableFromRows(rows [][]string) (*table, error) {
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &table{headers: headers}
	for _, row := range rows[1:] {
		if rowEmpty(row) {
			continue
		}
		// Pad short rows so column indexing stays in range.
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		}
		t.rows = append(t.rows, row)
	}
	if len(t.rows) == 0 {
		return nil, errors.New("file has headers but no data rows")
	}
	return t, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columnIndex maps required header names to their positions, case-insensitive
// on the header text. Missing columns are reported together.
func (t *table) columnIndex(required []string) (map[string]int, []string) {
	byName := make(map[string]int, len(t.headers))
	for i, h := range t.headers {
		byName[strings.ToLower(h)] = i
	}

	index := make(map[string]int, len(required))
	var missing []string
	for _, col := range required {
		i, ok := byName[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	return index, missing
}
