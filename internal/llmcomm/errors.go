package llmcomm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAuthRequired is returned when a request is attempted without an API key.
var ErrAuthRequired = errors.New("API key is required")

// NetworkError is returned when the completion endpoint could not be reached
// or did not answer in time.
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out: %v", e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is returned when the endpoint answers with a non-success status.
// Message holds the error text reported by the API, or the raw body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s", e.Message)
}

// PersistenceError describes a failed read or write of local state.
// Stores log it and carry on; it is never returned to the controller.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a NetworkError caused by a timeout.
func IsTimeout(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Timeout
}

// IsAPIError reports whether err carries an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
