package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/drcal/internal/adapters/repository"
)

var (
	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = fmt.Errorf("service: %w", repository.ErrNotFound)
	// ErrNoData is returned when a submission carries no usable fields.
	ErrNoData = errors.New("no data provided")
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries the user-facing messages of a rejected submission.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Messages, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Messages extracts validation messages from err, or nil when err is not a
// validation failure.
func Messages(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Messages
	}
	return nil
}
