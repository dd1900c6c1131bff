package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor handles Excel workbooks. Each sheet is rendered like a CSV:
// first row as headers, data rows as "header: value" lines.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Extract(r io.Reader, filename string) (string, int, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return "", 0, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	var sheets []string
	for _, name := range wb.GetSheetList() {
		rows, err := wb.GetRows(name)
		if err != nil {
			return "", 0, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		var text strings.Builder
		text.WriteString("Sheet: " + name + "\n")
		if len(rows) == 1 {
			text.WriteString("Columns: " + strings.Join(headers, ", "))
			sheets = append(sheets, text.String())
			continue
		}
		for _, row := range rows[1:] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) && headers[j] != "" {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimRight(text.String(), "\n"))
	}

	return strings.Join(sheets, "\n\n"), len(sheets), nil
}
