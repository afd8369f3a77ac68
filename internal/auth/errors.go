package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedToken is returned when a token cannot be parsed or lacks a subject.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the token signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when the token expiry is not in the future.
	ErrTokenExpired = errors.New("token expired")

	ErrBadCredentials    = errors.New("bad credentials")
	ErrAccountDisabled   = errors.New("account disabled")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrTooManyAttempts   = errors.New("too many failed login attempts")
	ErrForbidden         = errors.New("forbidden")

	// ErrUnauthenticated matches every failure raised while validating a presented token.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// unauthenticatedError keeps the concrete failure kind while matching ErrUnauthenticated.
type unauthenticatedError struct {
	cause error
}

// Unauthenticated wraps a token validation failure.
func Unauthenticated(cause error) error {
	return unauthenticatedError{cause: cause}
}

func (e unauthenticatedError) Is(target error) bool {
	return target == ErrUnauthenticated
}

func (e unauthenticatedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnauthenticated, e.cause)
}

func (e unauthenticatedError) Unwrap() error {
	return e.cause
}

// Kind returns a stable label for the most specific auth failure in err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "unclassified"
	}
}

// IsAuthFailure reports whether err is one of the typed authentication failures rather
// than an infrastructure error.
func IsAuthFailure(err error) bool {
	kind := Kind(err)
	return kind != "" && kind != "unclassified"
}
