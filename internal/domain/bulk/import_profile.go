package bulk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceRuleType is the kind of price transformation a profile applies
type PriceRuleType string

const (
	PriceRuleMultiply        PriceRuleType = "multiply"
	PriceRuleDivide          PriceRuleType = "divide"
	PriceRuleCurrencyConvert PriceRuleType = "currency_convert"
	PriceRuleParseFloat      PriceRuleType = "parse_float"
)

// IsValid checks if the rule type is known
func (t PriceRuleType) IsValid() bool {
	switch t {
	case PriceRuleMultiply, PriceRuleDivide, PriceRuleCurrencyConvert, PriceRuleParseFloat:
		return true
	}
	return false
}

// PriceRule scales or converts the parsed price.
// For currency_convert, Value is an optional pinned rate and TargetCurrency the currency to convert into.
type PriceRule struct {
	Type           PriceRuleType   `json:"type"`
	Value          decimal.Decimal `json:"value"`
	TargetCurrency string          `json:"target_currency,omitempty"`
}

// Validate checks the rule parameters
func (r PriceRule) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("unknown price rule %q", r.Type)
	}
	switch r.Type {
	case PriceRuleMultiply, PriceRuleDivide:
		if !r.Value.IsPositive() {
			return fmt.Errorf("price rule %s requires a positive value", r.Type)
		}
	case PriceRuleCurrencyConvert:
		if r.Value.IsNegative() {
			return fmt.Errorf("price rule %s rate cannot be negative", r.Type)
		}
	}
	return nil
}

// Transformations are the per-field value rules of a profile
type Transformations struct {
	Price       *PriceRule           `json:"price,omitempty"`
	CategoryMap map[string]uuid.UUID `json:"category_map,omitempty"`
}

// ResolveCategory looks up an external category code in the dictionary.
// Lookup is exact first, then case-insensitive on the trimmed code.
func (t Transformations) ResolveCategory(code string) (uuid.UUID, bool) {
	if len(t.CategoryMap) == 0 || code == "" {
		return uuid.Nil, false
	}
	if id, ok := t.CategoryMap[code]; ok {
		return id, true
	}
	trimmed := strings.TrimSpace(code)
	for k, id := range t.CategoryMap {
		if strings.EqualFold(strings.TrimSpace(k), trimmed) {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ValidationRules are the profile-declared checks applied on top of the baseline rules
type ValidationRules struct {
	RequireSKU        bool             `json:"require_sku"`
	AllowDuplicateSKU bool             `json:"allow_duplicate_sku"`
	MinPrice          *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice          *decimal.Decimal `json:"max_price,omitempty"`
	MinStock          *int             `json:"min_stock,omitempty"`
	DefaultCurrency   string           `json:"default_currency,omitempty"`
	RequiredFields    []CanonicalField `json:"required_fields,omitempty"`
}

// Validate checks the rules are self-consistent
func (r ValidationRules) Validate() error {
	if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
		return fmt.Errorf("min_price %s is greater than max_price %s", r.MinPrice, r.MaxPrice)
	}
	for _, f := range r.RequiredFields {
		if !f.IsValid() {
			return fmt.Errorf("unknown required field %q", f)
		}
	}
	if r.DefaultCurrency != "" && len(r.DefaultCurrency) != 3 {
		return fmt.Errorf("default_currency must be a 3-letter code")
	}
	return nil
}

// DelimiterAuto asks the decoder to detect the delimiter
const DelimiterAuto = "auto"

// ImportProfile is an operator-authored description of one vendor's spreadsheet layout
type ImportProfile struct {
	shared.TenantAggregateRoot
	Name            string
	Delimiter       string
	Encoding        string
	HasHeader       bool
	ColumnMapping   CanonicalMapping
	Transformations Transformations
	ValidationRules ValidationRules
	IsActive        bool
}

// ProfileSettings carries the editable parts of a profile
type ProfileSettings struct {
	Delimiter       string
	Encoding        string
	HasHeader       bool
	ColumnMapping   CanonicalMapping
	Transformations Transformations
	ValidationRules ValidationRules
}

// NewImportProfile creates an active profile
func NewImportProfile(tenantID, createdBy uuid.UUID, name string, settings ProfileSettings) (*ImportProfile, error) {
	p := &ImportProfile{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, &createdBy),
		IsActive:            true,
	}
	if err := p.apply(name, settings); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the editable parts of the profile
func (p *ImportProfile) Update(name string, settings ProfileSettings) error {
	if err := p.apply(name, settings); err != nil {
		return err
	}
	p.Touch()
	p.IncrementVersion()
	return nil
}

func (p *ImportProfile) apply(name string, s ProfileSettings) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_PROFILE_NAME", "Profile name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 200 {
		return shared.NewDomainError("INVALID_PROFILE_NAME", "Profile name cannot exceed 200 characters")
	}
	if _, err := ParseDelimiter(s.Delimiter); err != nil {
		return shared.NewDomainError("INVALID_DELIMITER", err.Error())
	}
	if err := s.ColumnMapping.Validate(); err != nil {
		return shared.NewDomainError("INVALID_COLUMN_MAPPING", err.Error())
	}
	if s.Transformations.Price != nil {
		if err := s.Transformations.Price.Validate(); err != nil {
			return shared.NewDomainError("INVALID_TRANSFORMATION", err.Error())
		}
	}
	if err := s.ValidationRules.Validate(); err != nil {
		return shared.NewDomainError("INVALID_VALIDATION_RULES", err.Error())
	}

	p.Name = name
	p.Delimiter = s.Delimiter
	p.Encoding = strings.ToLower(strings.TrimSpace(s.Encoding))
	if p.Encoding == "" {
		p.Encoding = "utf-8"
	}
	p.HasHeader = s.HasHeader
	if len(s.ColumnMapping) > 0 {
		p.ColumnMapping = s.ColumnMapping.Clone()
	} else {
		p.ColumnMapping = nil
	}
	p.Transformations = s.Transformations
	p.ValidationRules = s.ValidationRules
	p.ValidationRules.DefaultCurrency = strings.ToUpper(s.ValidationRules.DefaultCurrency)
	return nil
}

// Activate makes the profile usable for runs
func (p *ImportProfile) Activate() error {
	if p.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Profile is already active")
	}
	p.IsActive = true
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Deactivate prevents new runs from using the profile
func (p *ImportProfile) Deactivate() error {
	if !p.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Profile is already inactive")
	}
	p.IsActive = false
	p.Touch()
	p.IncrementVersion()
	return nil
}

// DelimiterRune returns the declared delimiter, or 0 when it should be detected
func (p *ImportProfile) DelimiterRune() rune {
	r, _ := ParseDelimiter(p.Delimiter)
	return r
}

// HasExplicitMapping reports whether the profile pins its column mapping
func (p *ImportProfile) HasExplicitMapping() bool {
	return len(p.ColumnMapping) > 0
}

// ParseDelimiter turns a declared delimiter into a rune; empty or "auto" yields 0.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", DelimiterAuto:
		return 0, nil
	case "\\t", "tab", "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, \"tab\" or \"auto\"; got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}
