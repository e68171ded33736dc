package errors

import (
	"fmt"
	"time"
)

// Error types for the rule candidate index
type ErrorType string

const (
	// Catalog errors
	ErrorTypeCatalog ErrorType = "catalog"
	ErrorTypeRule    ErrorType = "rule"

	// Unit manifest errors
	ErrorTypeUnit ErrorType = "unit"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// CatalogError represents an error while loading or validating a rule catalog
type CatalogError struct {
	Type       ErrorType
	File       string
	Rule       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewCatalogError creates a new catalog error with context
func NewCatalogError(op string, err error) *CatalogError {
	return &CatalogError{
		Type:       ErrorTypeCatalog,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds the catalog file to the error
func (e *CatalogError) WithFile(path string) *CatalogError {
	e.File = path
	return e
}

// WithRule adds the offending rule name and marks the error as rule-level
func (e *CatalogError) WithRule(name string) *CatalogError {
	e.Rule = name
	e.Type = ErrorTypeRule
	return e
}

// Error implements the error interface
func (e *CatalogError) Error() string {
	switch {
	case e.File != "" && e.Rule != "":
		return fmt.Sprintf("%s %s failed for rule %q in %s: %v", e.Type, e.Operation, e.Rule, e.File, e.Underlying)
	case e.Rule != "":
		return fmt.Sprintf("%s %s failed for rule %q: %v", e.Type, e.Operation, e.Rule, e.Underlying)
	case e.File != "":
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.File, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *CatalogError) Unwrap() error {
	return e.Underlying
}

// UnitError represents an error reading or scanning a code unit manifest
type UnitError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewUnitError creates a new unit error
func NewUnitError(op, path string, err error) *UnitError {
	return &UnitError{
		Type:       ErrorTypeUnit,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *UnitError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrOrNil returns nil when no errors were collected
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
