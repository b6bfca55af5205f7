package catalog

import (
	"strings"
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	tenantID := uuid.New()
	categoryID := uuid.New()

	p, err := NewProduct(tenantID, ProductDetails{
		Name:       " Навушники ",
		SKU:        "SKU001",
		Price:      decimal.RequireFromString("499.99"),
		Stock:      10,
		Currency:   "uah",
		CategoryID: &categoryID,
		Images:     []string{"a.jpg", "b.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, tenantID, p.TenantID)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Навушники", p.Name)
	assert.Equal(t, "UAH", p.Currency)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("499.99")))
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.HasSKU())
	assert.Equal(t, 1, p.Version)
}

func TestNewProduct_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		details ProductDetails
		code    string
	}{
		{"empty name", ProductDetails{Name: "  "}, "INVALID_NAME"},
		{"long name", ProductDetails{Name: strings.Repeat("я", 501)}, "INVALID_NAME"},
		{"negative price", ProductDetails{Name: "x", Price: decimal.NewFromInt(-1)}, "INVALID_PRICE"},
		{"bad currency", ProductDetails{Name: "x", Currency: "HRYVNIA"}, "INVALID_CURRENCY"},
		{"long sku", ProductDetails{Name: "x", SKU: strings.Repeat("A", 101)}, "INVALID_SKU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(uuid.New(), tt.details)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}

	_, err := NewProduct(uuid.Nil, ProductDetails{Name: "x"})
	assert.Error(t, err)
}

func TestProduct_Apply(t *testing.T) {
	p, err := NewProduct(uuid.New(), ProductDetails{Name: "Old", SKU: "SKU001", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	id := p.ID
	created := p.CreatedAt

	images := []string{"new.jpg"}
	require.NoError(t, p.Apply(ProductDetails{Name: "New", SKU: "SKU001", Price: decimal.NewFromInt(2), Stock: 3, Images: images}))
	images[0] = "mutated.jpg"

	assert.Equal(t, id, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, []string{"new.jpg"}, p.Images)
	assert.Equal(t, 2, p.Version)

	assert.Error(t, p.Apply(ProductDetails{Name: ""}))
	assert.Equal(t, "New", p.Name)
}

func TestProduct_Details(t *testing.T) {
	p, err := NewProduct(uuid.New(), ProductDetails{Name: "Lamp", Price: decimal.NewFromInt(5), Images: []string{"x"}})
	require.NoError(t, err)

	d := p.Details()
	d.Images[0] = "y"
	assert.Equal(t, []string{"x"}, p.Images)
	assert.False(t, p.HasSKU())
}
