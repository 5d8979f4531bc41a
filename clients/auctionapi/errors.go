package auctionapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is a request that reached the server and came back non-2xx.
// Message is the user-facing reason from the response body when the server
// provided one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auction API returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("auction API returned %d", e.StatusCode)
}

func newAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	// Best effort; a non-JSON error body just leaves Message empty.
	_ = json.Unmarshal(body, &payload)
	return &APIError{StatusCode: statusCode, Message: payload.Message}
}

// UserMessage extracts the user-facing reason from an error chain, falling
// back to the error text for failures that never reached the server.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
