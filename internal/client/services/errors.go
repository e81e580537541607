package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
)

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("No user logged in")

// SignInErrorKind classifies a failed sign-in.
type SignInErrorKind string

const (
	SignInInvalidCredentials SignInErrorKind = "invalid_credentials"
	SignInRateLimited        SignInErrorKind = "rate_limited"
	SignInUnknown            SignInErrorKind = "unknown"
)

// SignInError wraps the provider error with its classification.
type SignInError struct {
	Kind SignInErrorKind
	Err  error
}

func (e *SignInError) Error() string {
	switch e.Kind {
	case SignInInvalidCredentials:
		return "Invalid email or password"
	case SignInRateLimited:
		return "Too many attempts. Please try again later"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "sign in failed"
}

func (e *SignInError) Unwrap() error { return e.Err }

// Retryable reports whether trying again unchanged could succeed.
func (e *SignInError) Retryable() bool {
	return e.Kind != SignInInvalidCredentials
}

// classifySignIn maps provider failures onto SignInErrorKind. A "code" field
// in the error body wins over the status code.
func classifySignIn(err error) *SignInError {
	var re *client.RequestError
	if !errors.As(err, &re) {
		return &SignInError{Kind: SignInUnknown, Err: err}
	}

	var body struct {
		Code string `json:"code"`
	}
	if len(re.Body) > 0 && json.Unmarshal(re.Body, &body) == nil {
		switch SignInErrorKind(body.Code) {
		case SignInInvalidCredentials, SignInRateLimited:
			return &SignInError{Kind: SignInErrorKind(body.Code), Err: err}
		}
	}

	switch re.Status {
	case http.StatusTooManyRequests:
		return &SignInError{Kind: SignInRateLimited, Err: err}
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return &SignInError{Kind: SignInInvalidCredentials, Err: err}
	}
	return &SignInError{Kind: SignInUnknown, Err: err}
}
