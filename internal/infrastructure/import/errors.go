package csvimport

import (
	"errors"
	"fmt"
)

// File-level codes, reported when a decoder error aborts a run.
const (
	ErrCodeImportInvalidFile         = "ERR_IMPORT_INVALID_FILE"
	ErrCodeImportEmptyFile           = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeImportFileTooLarge        = "ERR_IMPORT_FILE_TOO_LARGE"
	ErrCodeImportInvalidEncoding     = "ERR_IMPORT_INVALID_ENCODING"
	ErrCodeImportUnsupportedEncoding = "ERR_IMPORT_UNSUPPORTED_ENCODING"
	ErrCodeImportUnsupportedFormat   = "ERR_IMPORT_UNSUPPORTED_FORMAT"
	ErrCodeImportCSVParsing          = "ERR_IMPORT_CSV_PARSING"
	ErrCodeImportMissingHeader       = "ERR_IMPORT_MISSING_HEADER"
)

// Row-level codes. They never abort a run.
const (
	ErrCodeImportValidation    = "ERR_IMPORT_VALIDATION"
	ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidRange  = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeImportRowProcessing = "ERR_IMPORT_ROW_PROCESSING"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrInvalidEncoding     = errors.New("file is not valid text in the declared encoding")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrMissingHeader       = errors.New("file is missing a header row")
	ErrMalformedContent    = errors.New("file content cannot be parsed")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
)

var decodeFailures = []struct {
	err  error
	code string
}{
	{ErrEmptyFile, ErrCodeImportEmptyFile},
	{ErrInvalidEncoding, ErrCodeImportInvalidEncoding},
	{ErrUnsupportedEncoding, ErrCodeImportUnsupportedEncoding},
	{ErrUnsupportedFormat, ErrCodeImportUnsupportedFormat},
	{ErrMissingHeader, ErrCodeImportMissingHeader},
	{ErrMalformedContent, ErrCodeImportCSVParsing},
	{ErrFileTooLarge, ErrCodeImportFileTooLarge},
}

// IsDecodeError reports whether err describes the uploaded file itself.
func IsDecodeError(err error) bool {
	for _, f := range decodeFailures {
		if errors.Is(err, f.err) {
			return true
		}
	}
	return false
}

// ErrorCode returns the file-level code of a decoder error.
func ErrorCode(err error) string {
	for _, f := range decodeFailures {
		if errors.Is(err, f.err) {
			return f.code
		}
	}
	return ErrCodeImportInvalidFile
}

// RowError is one failed data row. Row is the 1-based physical row number.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

// DefaultMaxErrors caps how many row errors a run keeps.
const DefaultMaxErrors = 100

// RowErrors keeps the first limit errors of a run and counts the rest.
type RowErrors struct {
	kept  []RowError
	limit int
	total int
}

// NewRowErrors uses DefaultMaxErrors when limit is not positive.
func NewRowErrors(limit int) *RowErrors {
	if limit <= 0 {
		limit = DefaultMaxErrors
	}
	return &RowErrors{limit: limit}
}

func (c *RowErrors) Add(row int, code, message string) {
	c.total++
	if len(c.kept) < c.limit {
		c.kept = append(c.kept, RowError{Row: row, Code: code, Message: message})
	}
}

// Kept returns the retained errors in row order.
func (c *RowErrors) Kept() []RowError { return c.kept }

// Total counts every error added, kept or not.
func (c *RowErrors) Total() int { return c.total }

func (c *RowErrors) Truncated() bool { return c.total > len(c.kept) }

// ByCode counts the kept errors per code.
func (c *RowErrors) ByCode() map[string]int {
	out := make(map[string]int, 4)
	for _, e := range c.kept {
		out[e.Code]++
	}
	return out
}
