package models

import (
	"errors"
	"fmt"
)

// DataError marks missing, misaligned or insufficient history.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string { return fmt.Sprintf("data error: %s: %v", e.Op, e.Err) }
func (e *DataError) Unwrap() error { return e.Err }

// ModelFitError marks a regression that could not be fit.
type ModelFitError struct {
	Op  string
	Err error
}

func (e *ModelFitError) Error() string { return fmt.Sprintf("model fit error: %s: %v", e.Op, e.Err) }
func (e *ModelFitError) Unwrap() error { return e.Err }

// ConfigurationError marks invalid or contradictory settings. It is fatal before a search starts.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExternalSourceError marks a market-data fetch failure.
type ExternalSourceError struct {
	Source string
	Err    error
}

func (e *ExternalSourceError) Error() string {
	return fmt.Sprintf("external source error: %s: %v", e.Source, e.Err)
}
func (e *ExternalSourceError) Unwrap() error { return e.Err }

func NewDataError(op string, format string, args ...interface{}) error {
	return &DataError{Op: op, Err: fmt.Errorf(format, args...)}
}

func NewModelFitError(op string, format string, args ...interface{}) error {
	return &ModelFitError{Op: op, Err: fmt.Errorf(format, args...)}
}

func NewConfigurationError(field string, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

func IsDataError(err error) bool {
	var e *DataError
	return errors.As(err, &e)
}

func IsModelFitError(err error) bool {
	var e *ModelFitError
	return errors.As(err, &e)
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsExternalSourceError(err error) bool {
	var e *ExternalSourceError
	return errors.As(err, &e)
}

// AsDataError converts a persistent external failure into the DataError the core handles.
func AsDataError(op string, err error) error {
	if err == nil || IsDataError(err) {
		return err
	}
	return &DataError{Op: op, Err: err}
}
