package wakatime

import (
	"errors"
	"fmt"
)

// Sentinel errors for type-safe error checking
var (
	// ErrTransport covers network failures and non-200 responses.
	ErrTransport = errors.New("wakatime transport error")

	// ErrDecode means the response body did not match the summary schema.
	ErrDecode = errors.New("wakatime decode error")

	// ErrInvalidDate means a date argument was not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// APIError is a non-200 response from the WakaTime API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wakatime API error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap classifies every APIError as a transport failure.
func (e *APIError) Unwrap() error {
	return ErrTransport
}

func newAPIError(status int, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{StatusCode: status, Body: string(body)}
}
