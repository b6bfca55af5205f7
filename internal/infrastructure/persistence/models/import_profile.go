package models

import (
	"encoding/json"
	"fmt"

	"github.com/storefront/backend/internal/domain/bulk"
)

// ImportProfileModel is the persistence model for the ImportProfile domain entity.
// Mapping, transformations and validation rules are stored as JSON documents.
type ImportProfileModel struct {
	TenantColumns
	Name            string `gorm:"type:varchar(200);not null"`
	Delimiter       string `gorm:"type:varchar(8);not null"`
	Encoding        string `gorm:"type:varchar(32);not null"`
	HasHeader       bool   `gorm:"not null"`
	ColumnMapping   string `gorm:"type:jsonb;not null;default:'{}'"`
	Transformations string `gorm:"type:jsonb;not null;default:'{}'"`
	ValidationRules string `gorm:"type:jsonb;not null;default:'{}'"`
	IsActive        bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ImportProfileModel) TableName() string {
	return "import_profiles"
}

// ToDomain converts the persistence model to a domain ImportProfile entity.
func (m *ImportProfileModel) ToDomain() (*bulk.ImportProfile, error) {
	p := &bulk.ImportProfile{
		TenantAggregateRoot: m.root(),
		Name:                m.Name,
		Delimiter:           m.Delimiter,
		Encoding:            m.Encoding,
		HasHeader:           m.HasHeader,
		IsActive:            m.IsActive,
	}
	if err := unmarshalDocument(m.ColumnMapping, &p.ColumnMapping); err != nil {
		return nil, fmt.Errorf("profile %s column_mapping: %w", m.ID, err)
	}
	if err := unmarshalDocument(m.Transformations, &p.Transformations); err != nil {
		return nil, fmt.Errorf("profile %s transformations: %w", m.ID, err)
	}
	if err := unmarshalDocument(m.ValidationRules, &p.ValidationRules); err != nil {
		return nil, fmt.Errorf("profile %s validation_rules: %w", m.ID, err)
	}
	if len(p.ColumnMapping) == 0 {
		p.ColumnMapping = nil
	}
	return p, nil
}

// FromDomain populates the persistence model from a domain ImportProfile entity.
func (m *ImportProfileModel) FromDomain(p *bulk.ImportProfile) error {
	m.TenantColumns = tenantColumnsOf(p.TenantAggregateRoot)
	m.Name = p.Name
	m.Delimiter = p.Delimiter
	m.Encoding = p.Encoding
	m.HasHeader = p.HasHeader
	m.IsActive = p.IsActive

	var err error
	mapping := p.ColumnMapping
	if mapping == nil {
		mapping = bulk.NewCanonicalMapping()
	}
	if m.ColumnMapping, err = marshalDocument(mapping); err != nil {
		return fmt.Errorf("column_mapping: %w", err)
	}
	if m.Transformations, err = marshalDocument(p.Transformations); err != nil {
		return fmt.Errorf("transformations: %w", err)
	}
	if m.ValidationRules, err = marshalDocument(p.ValidationRules); err != nil {
		return fmt.Errorf("validation_rules: %w", err)
	}
	return nil
}

// ImportProfileModelFromDomain creates a new persistence model from a domain ImportProfile entity.
func ImportProfileModelFromDomain(p *bulk.ImportProfile) (*ImportProfileModel, error) {
	m := &ImportProfileModel{}
	if err := m.FromDomain(p); err != nil {
		return nil, err
	}
	return m, nil
}

func marshalDocument(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalDocument(doc string, v any) error {
	if doc == "" || doc == "null" {
		return nil
	}
	return json.Unmarshal([]byte(doc), v)
}
