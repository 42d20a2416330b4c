package oauth

import (
	"github.com/jamesprial/oauth2-provider/internal/oauth/oautherr"
)

// Causes wrapped by validation and scope failures, for errors.Is.
var (
	ErrInsufficientScope    = oautherr.ErrInsufficientScope
	ErrTokenExpired         = oautherr.ErrTokenExpired
	ErrUnknownToken         = oautherr.ErrUnknownToken
	ErrInvalidSignature     = oautherr.ErrInvalidSignature
	ErrUnsupportedAlgorithm = oautherr.ErrUnsupportedAlgorithm
)
