package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// readCSV loads the whole file into a string grid. Bank exports frequently
// have ragged rows (summary lines, trailing commas), so per-record field
// count checking is disabled.
func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		// Strip a UTF-8 BOM some exports put in front of the first header.
		if len(grid) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\uFEFF")
		}
		grid = append(grid, record)
	}
	return grid, nil
}
