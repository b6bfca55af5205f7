package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is one physical record of a tabular file
type Record struct {
	Line   int
	Fields []string
}

// CSVParser reads delimited text into records
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// NewCSVParser creates a parser over UTF-8 text
func NewCSVParser(r io.Reader, opts ...ParserOption) *CSVParser {
	parser := &CSVParser{
		delimiter:  DefaultDelimiter,
		lazyQuotes: true,
		trimSpace:  true,
	}

	for _, opt := range opts {
		opt(parser)
	}

	parser.reader = csv.NewReader(r)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = parser.trimSpace
	parser.reader.FieldsPerRecord = -1
	parser.reader.ReuseRecord = false

	return parser
}

// Next reads the next record. It returns io.EOF after the last record.
func (p *CSVParser) Next() (Record, error) {
	fields, err := p.reader.Read()
	if err == io.EOF {
		return Record{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Record{}, fmt.Errorf("%w: line %d: %v", ErrMalformedContent, perr.StartLine, perr.Err)
		}
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}

	line, _ := p.reader.FieldPos(0)
	if p.trimSpace {
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
	}
	return Record{Line: line, Fields: fields}, nil
}

// ReadAll reads every remaining record
func (p *CSVParser) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := p.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// ParseText parses delimited text in one call
func ParseText(text string, opts ...ParserOption) ([]Record, error) {
	return NewCSVParser(strings.NewReader(text), opts...).ReadAll()
}
