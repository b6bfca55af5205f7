package csvimport

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when neither the row nor the profile names a currency
const DefaultCurrency = "UAH"

// WarningCurrencyConvertNotImplemented is attached to drafts whose currency_convert rule could not convert
const WarningCurrencyConvertNotImplemented = "currency_convert not implemented: price left unchanged"

// DraftRecord is a transformed row, not yet validated or reconciled
type DraftRecord struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku,omitempty"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Currency     string          `json:"currency"`
	CategoryCode string          `json:"category_code,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	Images       []string        `json:"images,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// Details converts the draft to the catalog's product attributes
func (d DraftRecord) Details() catalog.ProductDetails {
	return catalog.ProductDetails{
		Name:        d.Name,
		SKU:         d.SKU,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		Currency:    d.Currency,
		CategoryID:  d.CategoryID,
		Images:      append([]string(nil), d.Images...),
	}
}

// Transformer applies a profile's value rules to raw rows
type Transformer struct {
	converter       CurrencyConverter
	defaultCurrency string
}

// TransformerOption configures a Transformer
type TransformerOption func(*Transformer)

// WithCurrencyConverter sets the rate source used by currency_convert
func WithCurrencyConverter(c CurrencyConverter) TransformerOption {
	return func(t *Transformer) {
		if c != nil {
			t.converter = c
		}
	}
}

// WithDefaultCurrency sets the currency used when nothing else names one
func WithDefaultCurrency(code string) TransformerOption {
	return func(t *Transformer) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			t.defaultCurrency = code
		}
	}
}

// NewTransformer creates a Transformer with an identity currency converter
func NewTransformer(opts ...TransformerOption) *Transformer {
	t := &Transformer{
		converter:       IdentityConverter{},
		defaultCurrency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// currencyAliases maps the symbols and names vendors write instead of ISO codes.
var currencyAliases = map[string]string{
	"₴": "UAH", "ГРН": "UAH", "ГРН.": "UAH", "ГРИВНЯ": "UAH", "HRN": "UAH",
	"$": "USD", "US$": "USD", "DOLLAR": "USD", "DOLLARS": "USD", "ДОЛ.": "USD", "ДОЛАР": "USD",
	"€": "EUR", "EURO": "EUR", "ЄВРО": "EUR", "ЕВРО": "EUR",
	"£": "GBP", "ZŁ": "PLN", "ЗЛ": "PLN", "₽": "RUB", "РУБ": "RUB", "РУБ.": "RUB",
}

// CurrencyCode resolves a cell to an ISO 4217 code. It accepts codes in any
// case and the common symbols and names in currencyAliases.
func CurrencyCode(cell string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(cell))
	if s == "" {
		return "", false
	}
	if code, ok := currencyAliases[s]; ok {
		return code, true
	}
	unit, err := currency.ParseISO(s)
	if err != nil {
		return "", false
	}
	return unit.String(), true
}

// Transform produces a draft record from a raw row. It never fails:
// cells that cannot be interpreted become empty or zero and are left to validation.
func (t *Transformer) Transform(
	ctx context.Context,
	row *Row,
	mapping bulk.CanonicalMapping,
	rules bulk.Transformations,
	profileCurrency string,
) DraftRecord {
	d := DraftRecord{
		Name:        ExtractValue(row, mapping.Source(bulk.FieldName), ""),
		SKU:         ExtractValue(row, mapping.Source(bulk.FieldSKU), ""),
		Description: ExtractValue(row, mapping.Source(bulk.FieldDescription), ""),
		Stock:       ParseStock(ExtractValue(row, mapping.Source(bulk.FieldStock), "0")),
		Images:      extractImages(row, mapping.Source(bulk.FieldImages)),
	}

	cell := strings.TrimSpace(ExtractValue(row, mapping.Source(bulk.FieldCurrency), ""))
	code, ok := CurrencyCode(cell)
	if !ok {
		if code, ok = CurrencyCode(profileCurrency); !ok {
			code = t.defaultCurrency
		}
		if cell != "" {
			d.Warnings = append(d.Warnings, fmt.Sprintf("unknown currency %q, using %s", cell, code))
		}
	}
	d.Currency = code

	d.CategoryCode = strings.TrimSpace(ExtractValue(row, mapping.Source(bulk.FieldCategory), ""))
	if id, ok := rules.ResolveCategory(d.CategoryCode); ok {
		d.CategoryID = &id
	}

	d.Price = ParsePrice(ExtractValue(row, mapping.Source(bulk.FieldPrice), ""))
	if rules.Price != nil {
		t.applyPriceRule(ctx, &d, *rules.Price)
	}
	return d
}

func (t *Transformer) applyPriceRule(ctx context.Context, d *DraftRecord, rule bulk.PriceRule) {
	switch rule.Type {
	case bulk.PriceRuleMultiply:
		d.Price = d.Price.Mul(rule.Value)
	case bulk.PriceRuleDivide:
		if !rule.Value.IsZero() {
			d.Price = d.Price.Div(rule.Value)
		}
	case bulk.PriceRuleCurrencyConvert:
		target := strings.ToUpper(strings.TrimSpace(rule.TargetCurrency))
		if target == "" || target == d.Currency {
			return
		}
		if rule.Value.IsPositive() {
			d.Price = d.Price.Mul(rule.Value)
			d.Currency = target
			break
		}
		converted, ok, err := t.converter.Convert(ctx, d.Price, d.Currency, target)
		switch {
		case err != nil:
			d.Warnings = append(d.Warnings, fmt.Sprintf("currency_convert %s->%s failed: %v; price left unchanged", d.Currency, target, err))
		case !ok:
			d.Warnings = append(d.Warnings, WarningCurrencyConvertNotImplemented)
		default:
			d.Price = converted
			d.Currency = target
		}
	case bulk.PriceRuleParseFloat:
		// parse only
	}
	d.Price = d.Price.Round(4)
}

// ExtractValue reads a mapped value from a row. Single reads one cell verbatim,
// Joined joins the non-empty cells with a single space, Unmapped yields def.
func ExtractValue(row *Row, src bulk.ColumnSource, def string) string {
	switch src.Kind() {
	case bulk.SourceSingle:
		return row.Get(src.Columns()[0])
	case bulk.SourceJoined:
		parts := make([]string, 0, len(src.Columns()))
		for _, col := range src.Columns() {
			if v := row.Get(col); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	default:
		return def
	}
}

// extractImages splits each mapped cell on commas. A joined mapping yields one list across its columns.
func extractImages(row *Row, src bulk.ColumnSource) []string {
	if !src.IsMapped() {
		return nil
	}
	var images []string
	for _, col := range src.Columns() {
		images = append(images, SplitList(row.Get(col))...)
	}
	return images
}

// SplitList splits a comma separated cell into trimmed, non-empty items
func SplitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	priceStrip  = regexp.MustCompile(`[^0-9.\-]`)
	floatPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParsePrice strips everything except digits, '.' and '-', then reads the leading number.
// Anything that does not yield a positive number becomes zero.
func ParsePrice(raw string) decimal.Decimal {
	cleaned := priceStrip.ReplaceAllString(raw, "")
	num := floatPrefix.FindString(cleaned)
	if num == "" {
		return decimal.Zero
	}
	num = strings.TrimSuffix(num, ".")
	d, err := decimal.NewFromString(num)
	if err != nil || !d.IsPositive() {
		return decimal.Zero
	}
	return d
}

// ParseStock reads the leading integer of a cell; anything else is zero
func ParseStock(raw string) int {
	num := intPrefix.FindString(strings.TrimSpace(raw))
	if num == "" {
		return 0
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	return n
}
