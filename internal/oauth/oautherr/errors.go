// Package oautherr builds the DomainErrors returned by bearer token
// validation. It sits below internal/oauth so the validator can use it
// without an import cycle.
package oautherr

import (
	"errors"
	"fmt"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
)

const domain = "oauth"

// Causes wrapped by the constructors, for errors.Is.
var (
	ErrInsufficientScope    = errors.New("insufficient_scope")
	ErrTokenExpired         = errors.New("token expired")
	ErrUnknownToken         = errors.New("unknown token")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)

// rejected is a token the caller presented and the validator refused.
func rejected(op string, cause error) *ierrors.DomainError {
	return ierrors.New(domain, op, ierrors.ErrUnauthorized, cause).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken)
}

func NewInvalidTokenError(op string, err error) *ierrors.DomainError {
	return rejected(op, err)
}

// NewUnknownTokenError is a token that was never issued or was revoked.
func NewUnknownTokenError(op string) *ierrors.DomainError {
	return rejected(op, ErrUnknownToken).WithContext("reason", "unknown_token")
}

func NewTokenExpiredError(op string) *ierrors.DomainError {
	return rejected(op, ErrTokenExpired).WithContext("reason", "token_expired")
}

func NewInvalidSignatureError(op string, err error) *ierrors.DomainError {
	return rejected(op, fmt.Errorf("%w: %v", ErrInvalidSignature, err)).
		WithContext("reason", "invalid_signature")
}

func NewUnsupportedAlgorithmError(op, algorithm string) *ierrors.DomainError {
	return rejected(op, ErrUnsupportedAlgorithm).WithContext("algorithm", algorithm)
}

// NewInsufficientScopeError records the scopes the resource required.
func NewInsufficientScopeError(op string, required []string) *ierrors.DomainError {
	return ierrors.New(domain, op, ierrors.ErrForbidden, ErrInsufficientScope).
		WithContext("oauth_error", ierrors.ErrorCodeInsufficientScope).
		WithContext("required_scopes", required)
}

// NewLookupError is a token store failure. It is the server's fault, not
// the caller's.
func NewLookupError(op string, err error) *ierrors.DomainError {
	return ierrors.New(domain, op, ierrors.ErrInternal, fmt.Errorf("token lookup failed: %w", err))
}

// Description is the error_description sent with an invalid_token
// challenge for err.
func Description(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "Access token expired"
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrUnsupportedAlgorithm):
		return "Access token signature is invalid"
	case errors.Is(err, ErrInsufficientScope):
		return "Insufficient scope for this resource"
	default:
		return "Invalid access token"
	}
}
