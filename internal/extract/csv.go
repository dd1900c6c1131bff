package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor handles CSV files. Rows are rendered as "header: value"
// lines and grouped into batches so each group fits a retrieval chunk.
type CSVExtractor struct{}

const csvRowsPerGroup = 20

func (e *CSVExtractor) Extract(r io.Reader, filename string) (string, int, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return "", 0, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", 0, nil
	}

	headers := records[0]
	dataRows := records[1:]

	var groups []string
	for i := 0; i < len(dataRows); i += csvRowsPerGroup {
		end := min(i+csvRowsPerGroup, len(dataRows))
		groups = append(groups, renderRowGroup(headers, dataRows[i:end], i+2))
	}
	if len(groups) == 0 {
		// Header-only file: keep the column names as searchable text.
		groups = append(groups, "Columns: "+strings.Join(headers, ", "))
	}

	return strings.Join(groups, "\n\n"), len(groups), nil
}

func renderRowGroup(headers []string, rows [][]string, firstLine int) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("Rows %d-%d\n", firstLine, firstLine+len(rows)-1))
	for _, row := range rows {
		for j, cell := range row {
			if j > 0 {
				text.WriteString(", ")
			}
			if j < len(headers) {
				text.WriteString(headers[j] + ": " + cell)
			} else {
				text.WriteString(cell)
			}
		}
		text.WriteString("\n")
	}
	return strings.TrimRight(text.String(), "\n")
}
