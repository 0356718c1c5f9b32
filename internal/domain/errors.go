package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTable is returned when an interval table fails validation.
	ErrInvalidTable = errors.New("invalid interval table")

	// ErrUnknownModel is returned when a prediction names a model that is not registered.
	ErrUnknownModel = errors.New("unknown model")
)

// UnknownIndicatorError reports an indicator that has no interval table.
// It signals a configuration or programming error rather than bad user input.
type UnknownIndicatorError struct {
	Indicator string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator %q", e.Indicator)
}

// MissingIndicatorError reports a raw record without a reading for a declared indicator.
type MissingIndicatorError struct {
	Indicator string
}

func (e *MissingIndicatorError) Error() string {
	return fmt.Sprintf("missing reading for indicator %q", e.Indicator)
}

// UnknownZoneError reports a zone outside the configured set. Only returned
// by builders constructed WithStrictZones.
type UnknownZoneError struct {
	Zone string
}

func (e *UnknownZoneError) Error() string {
	return fmt.Sprintf("unknown zone %q", e.Zone)
}

// InvalidLabelError reports a classifier output outside the label table.
type InvalidLabelError struct {
	Label int
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("classifier returned label %d outside the category table", e.Label)
}

// OutOfRangeError reports a reading outside the documented physical range of its indicator.
type OutOfRangeError struct {
	Indicator string
	Value     float64
	Bounds    Bounds
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("reading %g for %q outside [%g, %g]", e.Value, e.Indicator, e.Bounds.Min, e.Bounds.Max)
}

// ClassifierError wraps a failure surfaced by a model's classifier.
type ClassifierError struct {
	Model string
	Err   error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("model %q: %v", e.Model, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }
