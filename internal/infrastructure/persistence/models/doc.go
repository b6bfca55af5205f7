// Package models contains the GORM persistence models of the catalog import tables.
// Domain entities stay free of ORM tags; each model converts to and from its entity.
//
// Structure:
// - base.go: shared identity, version and tenant columns
// - product.go: catalog products written by imports
// - import_profile.go: vendor import profiles with JSON settings columns
// - import_history.go: import run records with JSON error details
package models
