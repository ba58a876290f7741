// Package errors provides custom error types for the ledgermap system.
// These errors enable better error handling, programmatic error checking,
// and a complete audit trail: per-record failures are recovered locally and
// counted, while configuration, IO and integrity failures abort a store run.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are the standard library helpers, re-exported so callers
// need a single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the ledgermap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedRecord indicates an unparsable row or a row missing a required field
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAmbiguousMatch indicates several high-confidence candidates for one record
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrConstraintViolation indicates a numeric invariant that does not hold
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrConfiguration indicates a store cannot run with the given configuration
	ErrConfiguration = errors.New("configuration error")

	// ErrIO indicates a failure reading inputs or writing outputs
	ErrIO = errors.New("io error")

	// ErrIntegrity indicates an internal-consistency failure that should be unreachable
	ErrIntegrity = errors.New("integrity error")

	// ErrPartitionExhausted indicates an ID partition has no values left
	ErrPartitionExhausted = errors.New("id partition exhausted")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// MalformedRecordError represents a row that cannot be used: a required
// column is missing or a value could not be parsed. The row is dropped and counted.
type MalformedRecordError struct {
	Source   string
	Store    string
	RecordID string   // file#line of the raw row
	Fields   []string // offending internal fields
	Message  string
	Err      error
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	where := e.RecordID
	if where == "" {
		where = e.Source + "/" + e.Store
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("malformed record %s (%s): %s", where, strings.Join(e.Fields, ", "), e.Message)
	}
	return fmt.Sprintf("malformed record %s: %s", where, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(source, store, recordID, message string, fields ...string) *MalformedRecordError {
	return &MalformedRecordError{
		Source:   source,
		Store:    store,
		RecordID: recordID,
		Fields:   fields,
		Message:  message,
	}
}

// AmbiguousMatchError is returned when a high-confidence strategy finds more
// than one canonical entity. The record is queued for manual review.
type AmbiguousMatchError struct {
	RecordID   string
	Strategy   string
	Candidates []string // canonical UUIDs
}

// Error implements the error interface
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for %s: strategy %s found %d candidates (%s)",
		e.RecordID, e.Strategy, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Is implements errors.Is support
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// NewAmbiguousMatchError creates a new AmbiguousMatchError
func NewAmbiguousMatchError(recordID, strategy string, candidates []string) *AmbiguousMatchError {
	return &AmbiguousMatchError{
		RecordID:   recordID,
		Strategy:   strategy,
		Candidates: candidates,
	}
}

// ConstraintViolationError represents a numeric invariant violation on a
// consolidated sale. Repaired violations are reported; unrepairable ones drop the sale.
type ConstraintViolationError struct {
	Store      string
	SaleNumber string
	Constraint string
	Message    string
}

// Error implements the error interface
func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint %s violated by sale %s/%s: %s", e.Constraint, e.Store, e.SaleNumber, e.Message)
}

// Is implements errors.Is support
func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// NewConstraintViolationError creates a new ConstraintViolationError
func NewConstraintViolationError(store, saleNumber, constraint, message string) *ConstraintViolationError {
	return &ConstraintViolationError{
		Store:      store,
		SaleNumber: saleNumber,
		Constraint: constraint,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// IntegrityError represents an internal-consistency failure, such as a
// duplicate sale key surviving deduplication.
type IntegrityError struct {
	Store   string
	Check   string
	Keys    []string
	Message string
}

// Error implements the error interface
func (e *IntegrityError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("integrity check %s failed for store %s (keys: %v): %s", e.Check, e.Store, e.Keys, e.Message)
	}
	return fmt.Sprintf("integrity check %s failed for store %s: %s", e.Check, e.Store, e.Message)
}

// Is implements errors.Is support
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// NewIntegrityError creates a new IntegrityError
func NewIntegrityError(store, check, message string, keys ...string) *IntegrityError {
	return &IntegrityError{
		Store:   store,
		Check:   check,
		Keys:    keys,
		Message: message,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformed checks if an error is a malformed record error
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsAmbiguous checks if an error is an ambiguous match error
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousMatch)
}

// IsConstraintViolation checks if an error is a constraint violation
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsIO checks if an error is an IO error
func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsIntegrity checks if an error is an integrity error
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsFatal reports whether err aborts a store run rather than a single record.
func IsFatal(err error) bool {
	return IsConfiguration(err) || IsIO(err) || IsIntegrity(err) || errors.Is(err, ErrPartitionExhausted)
}

// ParseError represents an error when parsing a field value or a data file
type ParseError struct {
	Format  string // "money", "date", "yaml", "csv", etc.
	File    string
	Line    int
	Value   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	if e.Value != "" {
		return fmt.Sprintf("%s parse error for %q: %s", e.Format, e.Value, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// NewValueParseError creates a ParseError for a single field value
func NewValueParseError(format, value, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Value:   value,
		Message: message,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(component string, err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(component, err.Error(), err)
}
