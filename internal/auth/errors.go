package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: unique constraint violated")
	ErrInvalidInput = errors.New("auth: invalid input")

	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")

	ErrDuplicateEmail     = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrCorruptHash        = errors.New("auth: stored password hash is corrupt")
	ErrMissingSecret      = errors.New("auth: signing secret is not configured")

	ErrUpstreamProvider = errors.New("auth: identity provider assertion could not be verified")
	ErrUnknownProvider  = errors.New("auth: unknown identity provider")
	ErrUnverifiedEmail  = errors.New("auth: identity provider did not verify the email")
)

// ErrInvalidToken is the parent of every bearer token failure. The concrete
// kinds stay distinguishable through errors.Is.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)

var (
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrMemberGone     = fmt.Errorf("%w: member no longer exists", ErrInvalidToken)
)

// TokenFailureReason returns a short label for metrics and logs.
func TokenFailureReason(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature_mismatch"
	case errors.Is(err, ErrMemberGone):
		return "member_missing"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "error"
	}
}
