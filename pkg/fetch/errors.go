package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDescriptors is returned when a batch is started with no descriptors.
	ErrNoDescriptors = errors.New("no descriptors")

	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// DescriptorError ties a batch failure to the descriptor that caused it.
type DescriptorError struct {
	Index int
	URL   string
	Err   error
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	return fmt.Sprintf("descriptor %d (%s): %v", e.Index, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DescriptorError) Unwrap() error {
	return e.Err
}
