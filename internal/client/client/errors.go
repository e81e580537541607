package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/dispersed/internal/common"
)

// User-facing messages used when the server does not provide one.
const (
	MessageNetworkError  = "Network error or server unavailable"
	MessageRequestFailed = "Request failed"
	MessageAuthRequired  = "Authentication required"
)

var (
	// ErrTransport matches failures where no usable response was received.
	ErrTransport = errors.New("transport error")
	// ErrHTTP matches any non-2xx response.
	ErrHTTP = errors.New("http error")
	// ErrAuthRequired matches an authenticated call made without a token.
	ErrAuthRequired = errors.New("authentication required")
	// ErrRateLimited matches 429 responses.
	ErrRateLimited = errors.New("rate limited")

	ErrUnauthorized = common.ErrorUnauthorized
	ErrNotFound     = common.ErrorNotFound
)

// RequestError is returned for every failed API call.
type RequestError struct {
	// Message is taken from the "error" or "message" field of the response
	// body when present.
	Message string
	// Status is the HTTP status code, or 0 for transport failures.
	Status int
	// Body is the decoded error body, if any.
	Body json.RawMessage

	err error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *RequestError) Unwrap() error { return e.err }

// Is maps the status code onto the package sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Status == 0
	case ErrHTTP:
		return e.Status != 0
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

func transportError(cause error) *RequestError {
	return &RequestError{Message: MessageNetworkError, err: cause}
}

func authRequiredError() *RequestError {
	return &RequestError{Message: MessageAuthRequired, Status: http.StatusUnauthorized, err: ErrAuthRequired}
}

// httpError builds the error for a non-2xx response. A body that is not a
// JSON object still yields the status code.
func httpError(status int, body []byte) *RequestError {
	e := &RequestError{Message: MessageRequestFailed, Status: status}

	var fields struct {
		Error   any `json:"error"`
		Message any `json:"message"`
	}
	if json.Valid(body) {
		e.Body = json.RawMessage(body)
		if err := json.Unmarshal(body, &fields); err == nil {
			if s, ok := fields.Error.(string); ok && s != "" {
				e.Message = s
			} else if s, ok := fields.Message.(string); ok && s != "" {
				e.Message = s
			}
		}
	}
	return e
}

// StatusOf returns the status carried by err, or -1 when err is not a
// *RequestError.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return -1
}
