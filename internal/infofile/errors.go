package infofile

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrMalformedLine means a line could not be parsed or was out of range.
	ErrMalformedLine = errors.New("malformed line")
	// ErrTruncated means the stream ended where a value was expected.
	ErrTruncated = errors.New("unexpected end of file")
	// ErrCapacityExceeded means a string token does not fit its field buffer.
	ErrCapacityExceeded = errors.New("value exceeds field capacity")
	// ErrMissingSentinel means the extension block never reached END_MARKER.
	ErrMissingSentinel = errors.New("missing " + EndMarker)
	// ErrRegistryMismatch means a record layout references a field that the
	// key registry does not know about, or vice versa.
	ErrRegistryMismatch = errors.New("field registry mismatch")
	// ErrNoDefault is returned by SetDefault on mandatory fields.
	ErrNoDefault = errors.New("field has no default")
)

// FieldError ties a failure to the field that produced it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(name string, err error) error {
	if err == nil {
		return nil
	}
	return &FieldError{Field: name, Err: err}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedLine}, args...)...)
}
