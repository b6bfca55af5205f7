package csvimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyConverter converts a price between currencies.
// ok is false when the converter has no rate for the pair; the amount is then left unchanged.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (converted decimal.Decimal, ok bool, err error)
}

// IdentityConverter has no rate source and never converts
type IdentityConverter struct{}

// Convert returns amount unchanged and ok=false
func (IdentityConverter) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, bool, error) {
	return amount, false, nil
}

// PinnedRateConverter converts with a fixed operator-maintained rate table.
// Keys are "FROM:TO" pairs, e.g. "USD:UAH".
type PinnedRateConverter struct {
	rates map[string]decimal.Decimal
}

// NewPinnedRateConverter parses a "FROM:TO" -> rate table
func NewPinnedRateConverter(rates map[string]string) (*PinnedRateConverter, error) {
	c := &PinnedRateConverter{rates: make(map[string]decimal.Decimal, len(rates))}
	for pair, raw := range rates {
		from, to, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(pair)), ":")
		if !ok || len(from) != 3 || len(to) != 3 {
			return nil, fmt.Errorf("invalid currency pair %q, expected FROM:TO", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q for %s", raw, pair)
		}
		c.rates[from+":"+to] = rate
	}
	return c, nil
}

// Convert multiplies by the pinned rate, or by the inverse of the reverse pair
func (c *PinnedRateConverter) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, true, nil
	}
	if rate, ok := c.rates[from+":"+to]; ok {
		return amount.Mul(rate), true, nil
	}
	if rate, ok := c.rates[to+":"+from]; ok {
		return amount.Div(rate), true, nil
	}
	return amount, false, nil
}
