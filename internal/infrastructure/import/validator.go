package csvimport

import (
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
)

// Validation messages shared by the baseline rules
const (
	MsgNameRequired  = "name is required"
	MsgPricePositive = "price must be greater than 0"
)

// Violation is one failed rule
type Violation struct {
	Field   bulk.CanonicalField `json:"field"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
}

// ValidationResult is the verdict for one draft record
type ValidationResult struct {
	IsValid    bool        `json:"is_valid"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations,omitempty"`
}

// Message joins all error messages
func (r ValidationResult) Message() string {
	return strings.Join(r.Errors, "; ")
}

type draftValidator struct {
	result ValidationResult
	seen   map[bulk.CanonicalField]bool
}

func (v *draftValidator) fail(field bulk.CanonicalField, code, msg string) {
	v.result.Violations = append(v.result.Violations, Violation{Field: field, Code: code, Message: msg})
	v.result.Errors = append(v.result.Errors, msg)
	v.seen[field] = true
}

// ValidateBaseline applies the rules every record must pass: a name and a positive price
func ValidateBaseline(d DraftRecord) ValidationResult {
	v := newDraftValidator()
	v.baseline(d)
	return v.done()
}

// ValidateDraft applies the baseline rules plus the profile's rules.
// All violations are collected; nothing short-circuits.
func ValidateDraft(d DraftRecord, rules bulk.ValidationRules) ValidationResult {
	v := newDraftValidator()
	v.baseline(d)

	if rules.RequireSKU && strings.TrimSpace(d.SKU) == "" {
		v.fail(bulk.FieldSKU, ErrCodeImportRequiredField, "sku is required")
	}
	if rules.MinPrice != nil && d.Price.LessThan(*rules.MinPrice) {
		v.fail(bulk.FieldPrice, ErrCodeImportInvalidRange, fmt.Sprintf("price must be at least %s", rules.MinPrice.String()))
	}
	if rules.MaxPrice != nil && d.Price.GreaterThan(*rules.MaxPrice) {
		v.fail(bulk.FieldPrice, ErrCodeImportInvalidRange, fmt.Sprintf("price must be at most %s", rules.MaxPrice.String()))
	}
	if rules.MinStock != nil && d.Stock < *rules.MinStock {
		v.fail(bulk.FieldStock, ErrCodeImportInvalidRange, fmt.Sprintf("stock must be at least %d", *rules.MinStock))
	}
	for _, f := range rules.RequiredFields {
		if v.seen[f] {
			continue
		}
		if !hasValue(d, f) {
			v.fail(f, ErrCodeImportRequiredField, fmt.Sprintf("%s is required", f))
		}
	}
	return v.done()
}

func newDraftValidator() *draftValidator {
	return &draftValidator{
		result: ValidationResult{Errors: make([]string, 0)},
		seen:   make(map[bulk.CanonicalField]bool),
	}
}

func (v *draftValidator) baseline(d DraftRecord) {
	if strings.TrimSpace(d.Name) == "" {
		v.fail(bulk.FieldName, ErrCodeImportRequiredField, MsgNameRequired)
	}
	if !d.Price.IsPositive() {
		v.fail(bulk.FieldPrice, ErrCodeImportInvalidRange, MsgPricePositive)
	}
}

func (v *draftValidator) done() ValidationResult {
	v.result.IsValid = len(v.result.Errors) == 0
	return v.result
}

func hasValue(d DraftRecord, f bulk.CanonicalField) bool {
	switch f {
	case bulk.FieldName:
		return strings.TrimSpace(d.Name) != ""
	case bulk.FieldSKU:
		return strings.TrimSpace(d.SKU) != ""
	case bulk.FieldDescription:
		return strings.TrimSpace(d.Description) != ""
	case bulk.FieldPrice:
		return d.Price.IsPositive()
	case bulk.FieldStock:
		return d.Stock > 0
	case bulk.FieldCategory:
		return d.CategoryCode != "" || d.CategoryID != nil
	case bulk.FieldImages:
		return len(d.Images) > 0
	case bulk.FieldCurrency:
		return d.Currency != ""
	}
	return true
}
