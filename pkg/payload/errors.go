package payload

import (
	"errors"
	"fmt"
)

// ErrFieldMissing is matched by every *FieldError.
var ErrFieldMissing = errors.New("expected field missing")

// FieldError reports a field the extraction needs that is absent from the document.
type FieldError struct {
	// Path is the dotted location of the field, e.g. "included[0].attributes.values".
	Path string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("payload: %s: %q", ErrFieldMissing, e.Path)
}

// Is reports whether target is ErrFieldMissing.
func (e *FieldError) Is(target error) bool {
	return target == ErrFieldMissing
}

func missing(format string, args ...any) error {
	return &FieldError{Path: fmt.Sprintf(format, args...)}
}
