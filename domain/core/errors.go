package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrDataSource      = errors.New("data source unavailable")
	ErrSchema          = errors.New("schema mismatch")
	ErrValueParse      = errors.New("value could not be parsed")
	ErrUnknownCategory = errors.New("unknown category")
)

// DataSourceError reports a table that could not be obtained or parsed.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrDataSource, e.Source)
	}
	return fmt.Sprintf("%v: %s: %v", ErrDataSource, e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }

// SchemaError names the column that was expected but missing or unusable.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "column not found"
	}
	return fmt.Sprintf("%v: %q: %s", ErrSchema, e.Column, reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ValueParseError identifies the cell that could not become a count.
type ValueParseError struct {
	Row      int
	Period   string
	Category string
	Raw      string
	Reason   string
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("%v: row %d (period %s), category %q: %q: %s",
		ErrValueParse, e.Row, e.Period, e.Category, e.Raw, e.Reason)
}

func (e *ValueParseError) Is(target error) bool { return target == ErrValueParse }

// Error constructors with context
func NewDataSourceError(source string, err error) error {
	return &DataSourceError{Source: source, Err: err}
}

func NewMissingColumnError(column string) error {
	return &SchemaError{Column: column}
}

func NewUnknownCategoryError(labels []string) error {
	return fmt.Errorf("%w: %v", ErrUnknownCategory, labels)
}

// Error checking helpers
func IsDataSourceError(err error) bool {
	return errors.Is(err, ErrDataSource)
}

func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsValueParseError(err error) bool {
	return errors.Is(err, ErrValueParse)
}

func IsUnknownCategoryError(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}
