package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotEnoughData is matched by every error that should surface to the
// consumer as "not enough data".
var ErrNotEnoughData = errors.New("not enough data")

// SchemaError is returned when a price table cannot be mapped to the
// canonical OHLCV schema.
type SchemaError struct {
	// Missing lists the canonical fields with no matching column.
	Missing []string
	// Reason describes a malformed cell when no field is missing.
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema error: missing required fields [%s]", strings.Join(e.Missing, ", "))
	}

	return fmt.Sprintf("schema error: %s", e.Reason)
}

// InsufficientDataError is returned when fewer rows than a lookback window
// requires survive indicator warm-up.
type InsufficientDataError struct {
	Rows     int
	Required int
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d rows available, %d required", e.Rows, e.Required)
}

// Is reports the error as a not enough data condition.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrNotEnoughData
}

// EmptyPredictionError is returned when there are no model outputs to decode.
type EmptyPredictionError struct{}

// Error implements the error interface.
func (e *EmptyPredictionError) Error() string {
	return "empty prediction: no windows were produced"
}

// Is reports the error as a not enough data condition.
func (e *EmptyPredictionError) Is(target error) bool {
	return target == ErrNotEnoughData
}
