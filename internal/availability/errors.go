package availability

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidParameter is returned when search parameters are out of bounds.
	ErrInvalidParameter = errors.New("invalid search parameter")

	// ErrDataIntegrity is returned when a busy interval from a calendar
	// provider is malformed.
	ErrDataIntegrity = errors.New("calendar data integrity error")
)

// ParameterError describes a search parameter outside its accepted range.
type ParameterError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

// Is reports whether target is ErrInvalidParameter.
func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// DataIntegrityError describes a busy interval or event that could not be
// resolved into a well-formed interval.
type DataIntegrityError struct {
	// EventID identifies the offending event when known.
	EventID string
	Start   time.Time
	End     time.Time
	Reason  string
	Err     error
}

func (e *DataIntegrityError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = "malformed interval"
	}
	if e.EventID != "" {
		msg = fmt.Sprintf("event %s: %s", e.EventID, msg)
	}
	if !e.Start.IsZero() || !e.End.IsZero() {
		msg = fmt.Sprintf("%s (start %s, end %s)", msg, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports whether target is ErrDataIntegrity.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}
