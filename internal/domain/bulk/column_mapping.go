package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalField is one of the fixed catalog attributes a source column can map onto
type CanonicalField string

const (
	FieldName        CanonicalField = "name"
	FieldSKU         CanonicalField = "sku"
	FieldDescription CanonicalField = "description"
	FieldPrice       CanonicalField = "price"
	FieldStock       CanonicalField = "stock"
	FieldCategory    CanonicalField = "category"
	FieldImages      CanonicalField = "images"
	FieldCurrency    CanonicalField = "currency"
)

// CanonicalFields lists every canonical field in a stable order.
var CanonicalFields = []CanonicalField{
	FieldName,
	FieldSKU,
	FieldDescription,
	FieldPrice,
	FieldStock,
	FieldCategory,
	FieldImages,
	FieldCurrency,
}

// IsValid checks if the field is one of the canonical fields
func (f CanonicalField) IsValid() bool {
	for _, c := range CanonicalFields {
		if c == f {
			return true
		}
	}
	return false
}

// SourceKind tells how a canonical field is sourced from the file
type SourceKind int

const (
	SourceUnmapped SourceKind = iota
	SourceSingle
	SourceJoined
)

func (k SourceKind) String() string {
	switch k {
	case SourceSingle:
		return "single"
	case SourceJoined:
		return "joined"
	default:
		return "unmapped"
	}
}

// ColumnSource is Unmapped, Single(column) or Joined(columns...).
// The zero value is Unmapped.
type ColumnSource struct {
	kind    SourceKind
	columns []string
}

// Unmapped returns a source that reads nothing
func Unmapped() ColumnSource {
	return ColumnSource{}
}

// Single returns a source that reads one column verbatim
func Single(column string) ColumnSource {
	return ColumnSource{kind: SourceSingle, columns: []string{column}}
}

// Joined returns a source that concatenates the non-empty cells of columns with a single space
func Joined(columns ...string) ColumnSource {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return ColumnSource{kind: SourceJoined, columns: cols}
}

// Kind returns the variant
func (s ColumnSource) Kind() SourceKind {
	return s.kind
}

// IsMapped reports whether the source reads at least one column
func (s ColumnSource) IsMapped() bool {
	return s.kind != SourceUnmapped
}

// Columns returns a copy of the referenced column names
func (s ColumnSource) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Equal compares two sources by variant and columns
func (s ColumnSource) Equal(other ColumnSource) bool {
	if s.kind != other.kind || len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

// Validate checks that the referenced column names are usable
func (s ColumnSource) Validate() error {
	switch s.kind {
	case SourceUnmapped:
		return nil
	case SourceSingle:
		if len(s.columns) != 1 || strings.TrimSpace(s.columns[0]) == "" {
			return fmt.Errorf("single column source requires a non-empty column name")
		}
	case SourceJoined:
		if len(s.columns) == 0 {
			return fmt.Errorf("joined column source requires at least one column")
		}
		for _, c := range s.columns {
			if strings.TrimSpace(c) == "" {
				return fmt.Errorf("joined column source contains an empty column name")
			}
		}
	default:
		return fmt.Errorf("unknown column source kind %d", s.kind)
	}
	return nil
}

// MarshalJSON encodes Unmapped as null, Single as a string and Joined as a string array
func (s ColumnSource) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case SourceSingle:
		return json.Marshal(s.columns[0])
	case SourceJoined:
		return json.Marshal(s.columns)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a string or an array of strings
func (s *ColumnSource) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*s = Unmapped()
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var cols []string
		if err := json.Unmarshal(data, &cols); err != nil {
			return fmt.Errorf("column source: %w", err)
		}
		*s = Joined(cols...)
		return nil
	}
	var col string
	if err := json.Unmarshal(data, &col); err != nil {
		return fmt.Errorf("column source: %w", err)
	}
	if col == "" {
		*s = Unmapped()
		return nil
	}
	*s = Single(col)
	return nil
}

// CanonicalMapping maps each canonical field to its column source.
// A field missing from the map is Unmapped.
type CanonicalMapping map[CanonicalField]ColumnSource

// NewCanonicalMapping returns an empty mapping
func NewCanonicalMapping() CanonicalMapping {
	return make(CanonicalMapping, len(CanonicalFields))
}

// Source returns the source for field, Unmapped when absent
func (m CanonicalMapping) Source(field CanonicalField) ColumnSource {
	if m == nil {
		return Unmapped()
	}
	return m[field]
}

// Clone returns an independent copy
func (m CanonicalMapping) Clone() CanonicalMapping {
	out := make(CanonicalMapping, len(m))
	for f, s := range m {
		out[f] = ColumnSource{kind: s.kind, columns: s.Columns()}
	}
	return out
}

// Validate checks every entry names a canonical field and a usable source
func (m CanonicalMapping) Validate() error {
	for field, src := range m {
		if !field.IsValid() {
			return fmt.Errorf("unknown canonical field %q", field)
		}
		if err := src.Validate(); err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
	}
	return nil
}

// MappedFields returns the fields with a source, in canonical order
func (m CanonicalMapping) MappedFields() []CanonicalField {
	fields := make([]CanonicalField, 0, len(m))
	for _, f := range CanonicalFields {
		if m.Source(f).IsMapped() {
			fields = append(fields, f)
		}
	}
	return fields
}
