package csvimport

import (
	"fmt"
	"strings"
)

// Row is an ordered string-keyed map of raw cell values
type Row struct {
	LineNumber int
	keys       []string
	Data       map[string]string
	RawFields  []string
}

// NewRow builds a row from ordered keys and values. Missing values are empty.
func NewRow(line int, keys []string, values []string) *Row {
	r := &Row{
		LineNumber: line,
		keys:       keys,
		Data:       make(map[string]string, len(keys)),
		RawFields:  values,
	}
	for i, k := range keys {
		if i < len(values) {
			r.Data[k] = values[i]
		} else {
			r.Data[k] = ""
		}
	}
	return r
}

// RowFromMap builds a row from a map, ordering keys as given
func RowFromMap(keys []string, data map[string]string) *Row {
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = data[k]
	}
	return NewRow(0, keys, values)
}

// Keys returns the column names in file order
func (r *Row) Keys() []string {
	return r.keys
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// Lookup returns the value and whether the column exists
func (r *Row) Lookup(header string) (string, bool) {
	v, ok := r.Data[header]
	return v, ok
}

// GetOrDefault returns the value for a column, or def if missing or empty
func (r *Row) GetOrDefault(header, def string) string {
	if val, ok := r.Data[header]; ok && val != "" {
		return val
	}
	return def
}

// Values returns the cells in column order
func (r *Row) Values() []string {
	out := make([]string, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.Data[k]
	}
	return out
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Table is a decoded tabular file
type Table struct {
	Headers   []string
	Rows      []*Row
	RowCount  int
	Preview   []*Row
	Delimiter rune
	Format    Format
}

// buildTable turns raw records into headers and rows.
// Fully empty records are skipped; ragged records are padded or truncated to the header width.
func buildTable(records []Record, hasHeader bool, previewLimit int) (*Table, error) {
	records = dropEmptyRecords(records)

	var headers []string
	body := records
	if hasHeader {
		if len(records) == 0 {
			return nil, ErrMissingHeader
		}
		headers = normalizeHeaders(records[0].Fields)
		if len(headers) == 0 {
			return nil, ErrMissingHeader
		}
		body = records[1:]
	} else {
		width := 0
		for _, rec := range records {
			if len(rec.Fields) > width {
				width = len(rec.Fields)
			}
		}
		headers = syntheticHeaders(width)
	}

	t := &Table{Headers: headers, Rows: make([]*Row, 0, len(body))}
	for _, rec := range body {
		t.Rows = append(t.Rows, NewRow(rec.Line, headers, rec.Fields))
	}
	t.RowCount = len(t.Rows)

	if previewLimit > 0 {
		n := previewLimit
		if n > len(t.Rows) {
			n = len(t.Rows)
		}
		t.Preview = t.Rows[:n]
	}
	return t, nil
}

func dropEmptyRecords(records []Record) []Record {
	out := records[:0:0]
	for _, rec := range records {
		for _, f := range rec.Fields {
			if strings.TrimSpace(f) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// normalizeHeaders trims header cells, names blank ones by position and
// makes duplicates unique with a numeric suffix.
func normalizeHeaders(cells []string) []string {
	allBlank := true
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			allBlank = false
			break
		}
	}
	if allBlank {
		return nil
	}

	headers := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		h := strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}

func syntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("column_%d", i+1)
	}
	return headers
}
