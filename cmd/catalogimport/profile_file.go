package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"gopkg.in/yaml.v3"
)

// profileFile is the YAML form of an import profile. It carries the same keys
// as the profile API body:
//
//	name: Supplier A
//	delimiter: ";"
//	encoding: windows-1251
//	column_mapping:
//	  sku: Item Code
//	  name: [Brand, Model]
//	transformations:
//	  price: {type: multiply, value: "1.2"}
//	validation_rules:
//	  require_sku: true
//	  min_price: "0.01"
type profileFile = dto.ImportProfileRequest

// loadProfileFile reads a YAML profile. The document is re-encoded as JSON so
// mapping sources and decimals go through their JSON decoders.
func loadProfileFile(path string) (profileFile, error) {
	var p profileFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yamlToJSON(raw, &p); err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, fmt.Errorf("%s: name is required", path)
	}
	if p.ColumnMapping != nil {
		if err := p.ColumnMapping.Validate(); err != nil {
			return p, fmt.Errorf("%s: column_mapping: %w", path, err)
		}
	}
	return p, nil
}

// loadMappingFile reads a YAML document holding only a column mapping.
func loadMappingFile(path string) (bulk.CanonicalMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping bulk.CanonicalMapping
	if err := yamlToJSON(raw, &mapping); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mapping, nil
}

func yamlToJSON(raw []byte, out any) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	if doc == nil {
		return errors.New("empty document")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("unsupported yaml value: %w", err)
	}
	return json.Unmarshal(data, out)
}
