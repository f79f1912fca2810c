package models

import (
	"errors"
	"fmt"
)

// ValidationError marks a malformed event or request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DataUnavailableError means no usable candles could be obtained.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("candles unavailable for %s", e.Symbol)
	}
	return fmt.Sprintf("candles unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// ScoringError carries the error marker a scorer put on its result.
type ScoringError struct {
	Strategy StrategyID
	Reason   string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring %s: %s", e.Strategy, e.Reason)
}

// PublishError wraps an outbound transport failure.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ErrUnknownStrategy is returned when a strategy identifier has no registered scorer.
var ErrUnknownStrategy = errors.New("unknown strategy")

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsDataUnavailable(err error) bool {
	var d *DataUnavailableError
	return errors.As(err, &d)
}

func IsScoring(err error) bool {
	var s *ScoringError
	return errors.As(err, &s)
}
