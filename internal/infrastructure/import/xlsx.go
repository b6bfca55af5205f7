package csvimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first worksheet of a workbook into records
func readXLSX(content []byte) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformedContent, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedContent)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedContent, sheets[0], err)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		fields := make([]string, len(row))
		for j, cell := range row {
			fields[j] = strings.TrimSpace(cell)
		}
		records = append(records, Record{Line: i + 1, Fields: fields})
	}
	return records, nil
}
