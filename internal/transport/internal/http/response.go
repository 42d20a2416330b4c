package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/codec"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/oauth/oautherr"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	"github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// serverError is the body of a 500. server_error has no OAuth2Error kind
// because the token endpoint never renders it.
type serverError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// errorResponder renders bearer challenges and framework errors as JSON
// OAuth error documents.
type errorResponder struct {
	realm  string
	codec  *codec.JSONErrorCodec
	logger *zap.Logger
}

// NewErrorResponder creates an ErrorResponder advertising realm in its
// challenges. A nil logger discards output.
func NewErrorResponder(realm string, logger *zap.Logger) transportcore.ErrorResponder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &errorResponder{realm: realm, codec: codec.NewJSONErrorCodec(), logger: logger}
}

// write sends e with status and, when challenge is set, a WWW-Authenticate
// header carrying it.
func (r *errorResponder) write(w http.ResponseWriter, status int, challenge string, e *ierrors.OAuth2Error) {
	if challenge != "" {
		w.Header().Set(oauth.HeaderWWWAuthenticate, challenge)
	}
	w.Header().Set(oauth.HeaderContentType, oauth.ContentTypeJSON)
	w.WriteHeader(status)
	if err := r.codec.Write(w, e); err != nil {
		r.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// Unauthorized answers 401. ErrMissingToken yields a challenge without an
// error attribute (RFC 6750 §3.1); the body still names invalid_token.
func (r *errorResponder) Unauthorized(w http.ResponseWriter, scope string, err error) {
	r.logger.Warn("unauthorized request", zap.Error(err), zap.String("scope", scope))

	challenge := ierrors.Challenge{Realm: r.realm, Scope: scope}
	if errors.Is(err, transportcore.ErrMissingToken) {
		r.write(w, http.StatusUnauthorized, challenge.Header(nil), ierrors.InvalidToken("Authentication required"))
		return
	}
	rejected := ierrors.InvalidToken(oautherr.Description(err))
	r.write(w, http.StatusUnauthorized, challenge.Header(rejected), rejected)
}

// Forbidden answers 403 insufficient_scope naming every required scope.
func (r *errorResponder) Forbidden(w http.ResponseWriter, requiredScopes []string, err error) {
	r.logger.Warn("insufficient scope", zap.Error(err), zap.Strings("required_scopes", requiredScopes))

	scope := strings.Join(requiredScopes, " ")
	denied := ierrors.InsufficientScope("Required scopes: " + scope)
	r.write(w, http.StatusForbidden, ierrors.Challenge{Realm: r.realm, Scope: scope}.Header(denied), denied)
}

// InternalError answers 500 with a fixed description. err is only logged.
func (r *errorResponder) InternalError(w http.ResponseWriter, err error) {
	fields := []zap.Field{zap.Error(err)}
	if de, ok := ierrors.AsDomain(err); ok {
		fields = append(fields, zap.Object("failure", de))
	}
	r.logger.Error("internal server error", fields...)

	w.Header().Set(oauth.HeaderContentType, oauth.ContentTypeJSON)
	w.WriteHeader(http.StatusInternalServerError)
	body := serverError{Error: "server_error", Description: "An internal server error occurred"}
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		r.logger.Error("failed to encode error response", zap.Error(encodeErr))
	}
}

// BadRequest answers 400 invalid_request described by err.
func (r *errorResponder) BadRequest(w http.ResponseWriter, err error) {
	r.logger.Warn("bad request", zap.Error(err))

	description := "Invalid request"
	if err != nil {
		description = err.Error()
	}
	r.write(w, http.StatusBadRequest, "", ierrors.InvalidRequest(description))
}
