package models

import (
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
// SKU is indexed but not unique: profiles may allow duplicate SKUs.
type ProductModel struct {
	TenantColumns
	Name        string          `gorm:"type:varchar(500);not null"`
	SKU         string          `gorm:"column:sku;type:varchar(100);index"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock       int             `gorm:"not null;default:0"`
	Currency    string          `gorm:"type:varchar(3)"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`
	Images      pq.StringArray  `gorm:"type:text[]"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantAggregateRoot: m.root(),
		Name:                m.Name,
		SKU:                 m.SKU,
		Description:         m.Description,
		Price:               m.Price,
		Stock:               m.Stock,
		Currency:            m.Currency,
		CategoryID:          m.CategoryID,
		Images:              append([]string(nil), m.Images...),
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.TenantColumns = tenantColumnsOf(p.TenantAggregateRoot)
	m.Name = p.Name
	m.SKU = p.SKU
	m.Description = p.Description
	m.Price = p.Price
	m.Stock = p.Stock
	m.Currency = p.Currency
	m.CategoryID = p.CategoryID
	m.Images = pq.StringArray(append([]string{}, p.Images...))
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
