package csvimport

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/storefront/backend/internal/domain/bulk"
)

// SimilarityThreshold is the minimum similarity, exclusive, for a fuzzy header match
const SimilarityThreshold = 0.8

// minSubstringRunes keeps one- and two-letter headers from matching by containment
const minSubstringRunes = 3

// ColumnMapper infers canonical field mappings from header names
type ColumnMapper struct {
	synonyms map[bulk.CanonicalField][]string
}

// NewColumnMapper creates a mapper over a private, normalized copy of table
func NewColumnMapper(table SynonymTable) *ColumnMapper {
	m := &ColumnMapper{synonyms: make(map[bulk.CanonicalField][]string, len(table))}
	for field, words := range table {
		norm := make([]string, 0, len(words))
		for _, w := range words {
			if n := normalizeHeader(w); n != "" {
				norm = append(norm, n)
			}
		}
		m.synonyms[field] = norm
	}
	return m
}

var defaultMapper = NewColumnMapper(defaultSynonyms)

// DefaultColumnMapper returns the mapper over the built-in synonym table
func DefaultColumnMapper() *ColumnMapper {
	return defaultMapper
}

// InferMapping infers a mapping with the built-in synonym table
func InferMapping(headers []string) bulk.CanonicalMapping {
	return defaultMapper.Infer(headers)
}

// Infer assigns to each canonical field the first header, in header order, that matches
// one of its synonyms. Fields are assigned independently, so two fields may claim the same header.
func (m *ColumnMapper) Infer(headers []string) bulk.CanonicalMapping {
	mapping := bulk.NewCanonicalMapping()
	for _, field := range bulk.CanonicalFields {
		for _, h := range headers {
			if m.Matches(field, h) {
				mapping[field] = bulk.Single(h)
				break
			}
		}
	}
	return mapping
}

// Resolve returns explicit unchanged when it maps anything, otherwise the inferred mapping
func (m *ColumnMapper) Resolve(headers []string, explicit bulk.CanonicalMapping) bulk.CanonicalMapping {
	if len(explicit) > 0 {
		return explicit.Clone()
	}
	return m.Infer(headers)
}

// Matches reports whether header identifies field: equal to a synonym, containing or
// contained by one, or more than SimilarityThreshold similar to one.
func (m *ColumnMapper) Matches(field bulk.CanonicalField, header string) bool {
	h := normalizeHeader(header)
	if h == "" {
		return false
	}
	hLen := utf8.RuneCountInString(h)
	for _, syn := range m.synonyms[field] {
		if h == syn {
			return true
		}
		if hLen >= minSubstringRunes && utf8.RuneCountInString(syn) >= minSubstringRunes &&
			(strings.Contains(h, syn) || strings.Contains(syn, h)) {
			return true
		}
		if Similarity(h, syn) > SimilarityThreshold {
			return true
		}
	}
	return false
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// normalizeHeader lowercases, trims and collapses separators to single spaces
func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', '\t', ' ':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// MappingConflict is a header claimed by more than one canonical field
type MappingConflict struct {
	Header string                `json:"header"`
	Fields []bulk.CanonicalField `json:"fields"`
}

// MappingReport describes how a mapping covers a header list
type MappingReport struct {
	Conflicts       []MappingConflict `json:"conflicts"`
	UnmappedHeaders []string          `json:"unmapped_headers"`
	MissingColumns  []string          `json:"missing_columns"`
}

// AnalyzeMapping lists shared headers, headers no field reads, and mapped columns absent from the file
func AnalyzeMapping(mapping bulk.CanonicalMapping, headers []string) MappingReport {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	claims := make(map[string][]bulk.CanonicalField)
	missing := make(map[string]bool)
	for _, field := range bulk.CanonicalFields {
		for _, col := range mapping.Source(field).Columns() {
			claims[col] = append(claims[col], field)
			if !present[col] {
				missing[col] = true
			}
		}
	}

	report := MappingReport{
		Conflicts:       make([]MappingConflict, 0),
		UnmappedHeaders: make([]string, 0),
		MissingColumns:  make([]string, 0, len(missing)),
	}
	for _, h := range headers {
		fields := claims[h]
		switch {
		case len(fields) == 0:
			report.UnmappedHeaders = append(report.UnmappedHeaders, h)
		case len(fields) > 1:
			report.Conflicts = append(report.Conflicts, MappingConflict{Header: h, Fields: fields})
		}
	}
	for col := range missing {
		report.MissingColumns = append(report.MissingColumns, col)
	}
	sort.Strings(report.MissingColumns)
	return report
}
