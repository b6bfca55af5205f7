package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDetails is the importable shape of a catalog product
type ProductDetails struct {
	Name        string
	SKU         string
	Description string
	Price       decimal.Decimal
	Stock       int
	Currency    string
	CategoryID  *uuid.UUID
	Images      []string
}

// Product is a storefront catalog entry.
// Only the attributes the bulk importer writes are modelled here.
type Product struct {
	shared.TenantAggregateRoot
	Name        string
	SKU         string
	Description string
	Price       decimal.Decimal
	Stock       int
	Currency    string
	CategoryID  *uuid.UUID
	Images      []string
}

// NewProduct creates a product with a fresh identity
func NewProduct(tenantID uuid.UUID, details ProductDetails) (*Product, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	p := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, nil),
	}
	if err := p.set(details); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply overwrites the product's importable attributes in place.
// Identity, tenant and creation time are preserved.
func (p *Product) Apply(details ProductDetails) error {
	if err := p.set(details); err != nil {
		return err
	}
	p.Touch()
	p.IncrementVersion()
	return nil
}

func (p *Product) set(d ProductDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 500 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 500 characters")
	}
	sku := strings.TrimSpace(d.SKU)
	if utf8.RuneCountInString(sku) > 100 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 100 characters")
	}
	if d.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency != "" && utf8.RuneCountInString(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter code")
	}

	p.Name = name
	p.SKU = sku
	p.Description = strings.TrimSpace(d.Description)
	p.Price = d.Price
	p.Stock = d.Stock
	p.Currency = currency
	p.CategoryID = d.CategoryID
	p.Images = append([]string(nil), d.Images...)
	return nil
}

// Details returns the importable attributes of the product
func (p *Product) Details() ProductDetails {
	return ProductDetails{
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Currency:    p.Currency,
		CategoryID:  p.CategoryID,
		Images:      append([]string(nil), p.Images...),
	}
}

// HasSKU reports whether the product is addressable by SKU
func (p *Product) HasSKU() bool {
	return p.SKU != ""
}
