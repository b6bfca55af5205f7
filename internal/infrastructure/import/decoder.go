package csvimport

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Format is the container format of an uploaded file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFileName picks the format from the file extension.
// Unknown extensions are treated as delimited text.
func FormatFromFileName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls", ".ods", ".numbers":
		return "", ErrUnsupportedFormat
	default:
		return FormatCSV, nil
	}
}

type decodeOptions struct {
	delimiter    rune
	encoding     string
	hasHeader    bool
	previewLimit int
	format       Format
	maxSize      int64
}

// DecodeOption configures Decode
type DecodeOption func(*decodeOptions)

// WithFieldDelimiter declares the delimiter; 0 asks for detection
func WithFieldDelimiter(d rune) DecodeOption {
	return func(o *decodeOptions) { o.delimiter = d }
}

// WithEncoding declares the text encoding (default utf-8)
func WithEncoding(name string) DecodeOption {
	return func(o *decodeOptions) { o.encoding = name }
}

// WithHeader tells whether the first record holds column names (default true)
func WithHeader(has bool) DecodeOption {
	return func(o *decodeOptions) { o.hasHeader = has }
}

// WithPreviewLimit additionally exposes the first n rows as Table.Preview
func WithPreviewLimit(n int) DecodeOption {
	return func(o *decodeOptions) { o.previewLimit = n }
}

// WithFormat selects the container format (default csv)
func WithFormat(f Format) DecodeOption {
	return func(o *decodeOptions) { o.format = f }
}

// WithMaxSize rejects content larger than n bytes; 0 disables the check
func WithMaxSize(n int64) DecodeOption {
	return func(o *decodeOptions) { o.maxSize = n }
}

// Decode turns raw file content into headers and rows.
// Every error it returns is fatal for an import run.
func Decode(content []byte, opts ...DecodeOption) (*Table, error) {
	o := decodeOptions{
		hasHeader: true,
		format:    FormatCSV,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if o.maxSize > 0 && int64(len(content)) > o.maxSize {
		return nil, ErrFileTooLarge
	}

	var (
		records   []Record
		delimiter rune
		err       error
	)
	switch o.format {
	case FormatXLSX:
		records, err = readXLSX(content)
	case FormatCSV, "":
		records, delimiter, err = readDelimited(content, o)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	table, err := buildTable(records, o.hasHeader, o.previewLimit)
	if err != nil {
		return nil, err
	}
	table.Delimiter = delimiter
	table.Format = o.format
	if table.Format == "" {
		table.Format = FormatCSV
	}
	return table, nil
}

func readDelimited(content []byte, o decodeOptions) ([]Record, rune, error) {
	text, err := decodeText(content, o.encoding)
	if err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, 0, ErrEmptyFile
	}

	delimiter := o.delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(text)
	}
	if !utf8.ValidRune(delimiter) {
		return nil, 0, ErrMalformedContent
	}

	records, err := ParseText(text, WithDelimiter(delimiter))
	if err != nil {
		return nil, 0, err
	}
	return records, delimiter, nil
}
