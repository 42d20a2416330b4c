package transportcore

import (
	"errors"

	"github.com/jamesprial/oauth2-provider/internal/codec"
)

// Sentinels for bearer authentication and content negotiation. Match them
// with errors.Is; responders wrap them in DomainError where context helps.
var (
	// ErrMissingToken means the request carried no bearer token at all.
	ErrMissingToken = errors.New("missing authorization token")

	// ErrInvalidToken means the Authorization header is not a Bearer credential.
	ErrInvalidToken = errors.New("invalid authorization token")

	// ErrInsufficientScope means the token lacks one of the required scopes.
	ErrInsufficientScope = errors.New("insufficient scope")

	// ErrNotAcceptable is the codec negotiation failure, so errors from the
	// token codecs match it directly.
	ErrNotAcceptable = codec.ErrNotAcceptable
)
