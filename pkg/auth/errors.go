package auth

import (
	"errors"
	"net"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the auth service rejects an email
	// and password combination.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNetwork is returned when the auth service could not be reached at all.
	ErrNetwork = errors.New("cannot connect to server, check your internet connection")

	// ErrConfirmationRequired is returned by sign up when no session was issued
	// because the account first needs email confirmation.
	ErrConfirmationRequired = errors.New("check your email to confirm your account before signing in")
)

// APIError carries the auth service's own message so it can be surfaced as a
// fallback when no better classification applies.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "auth request failed"
	}

	return e.Message
}

var networkErrorPatterns = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"failed to fetch",
	"timeout",
}

// isNetworkError reports whether err looks like a transport failure rather
// than a rejection by the auth service.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range networkErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
