package calclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error constants.
var (
	ErrUnavailable = errors.New("calendar service unavailable")
	ErrDecode      = errors.New("calendar response could not be decoded")
	ErrSmoke       = errors.New("smoke check failed")
)

// APIError is a non-2xx reply from the calendar API.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("calendar api: status %d: %d validation errors", e.Status, len(e.Errors))
	}
	return fmt.Sprintf("calendar api: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the calendar API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ValidationErrors returns the messages of a rejected submission, or nil.
func ValidationErrors(err error) []string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Errors
	}
	return nil
}
