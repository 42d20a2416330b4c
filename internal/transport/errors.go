package transport

import (
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// Bearer and negotiation failures, shared with the internal handlers.
var (
	// ErrMissingToken indicates the Authorization header is missing or empty.
	ErrMissingToken = transportcore.ErrMissingToken

	// ErrInvalidToken indicates the token format is invalid (not a Bearer token).
	ErrInvalidToken = transportcore.ErrInvalidToken

	// ErrInsufficientScope indicates the token lacks required scope(s).
	ErrInsufficientScope = transportcore.ErrInsufficientScope

	// ErrNotAcceptable indicates no representation matches the Accept header.
	ErrNotAcceptable = transportcore.ErrNotAcceptable
)
