package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/codec"
	"github.com/jamesprial/oauth2-provider/internal/endpoint"
	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/token"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// TokenHandlerConfig holds the collaborators of the token handler.
type TokenHandlerConfig struct {
	// Endpoint runs the token request pipeline.
	Endpoint *endpoint.TokenEndpoint

	// Tokens encodes successful responses.
	Tokens *codec.Composite[*token.AccessToken]

	// Errors encodes OAuth2 error responses.
	Errors *codec.Composite[*ierrors.OAuth2Error]

	// Responder renders failures outside the OAuth taxonomy.
	Responder transportcore.ErrorResponder

	// Realm is advertised in the Basic challenge of invalid_client responses.
	Realm string
}

// tokenHandler serves the token endpoint.
type tokenHandler struct {
	endpoint  *endpoint.TokenEndpoint
	tokens    *codec.Composite[*token.AccessToken]
	errors    *codec.Composite[*ierrors.OAuth2Error]
	fallback  *codec.JSONErrorCodec
	responder transportcore.ErrorResponder
	realm     string
}

// NewTokenHandler creates the handler for POST /oauth/token.
func NewTokenHandler(cfg TokenHandlerConfig) http.Handler {
	if cfg.Endpoint == nil {
		panic("endpoint cannot be nil")
	}
	if cfg.Tokens == nil || cfg.Errors == nil {
		panic("codecs cannot be nil")
	}
	if cfg.Responder == nil {
		panic("responder cannot be nil")
	}

	return &tokenHandler{
		endpoint:  cfg.Endpoint,
		tokens:    cfg.Tokens,
		errors:    cfg.Errors,
		fallback:  codec.NewJSONErrorCodec(),
		responder: cfg.Responder,
		realm:     cfg.Realm,
	}
}

// ServeHTTP handles token requests. Parameters are read from the query
// string and the form body; body values take precedence.
func (h *tokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set(pkgoauth.HeaderAllow, http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, ierrors.InvalidRequest("Malformed request body").WithCause(err))
		return
	}

	params := make(map[string]string, len(r.Form))
	for key := range r.Form {
		params[key] = r.Form.Get(key)
	}

	at, err := h.endpoint.Token(r.Context(), params, r.Header)
	if err != nil {
		oauthErr, ok := endpoint.Translate(err)
		if !ok {
			h.responder.InternalError(w, err)
			return
		}
		h.writeError(w, r, oauthErr)
		return
	}

	h.writeToken(w, r, at)
}

// writeToken renders a granted token in the negotiated format.
func (h *tokenHandler) writeToken(w http.ResponseWriter, r *http.Request, at *token.AccessToken) {
	c, mediaType, err := h.tokens.Negotiate(r.Header.Get(pkgoauth.HeaderAccept))
	if err != nil {
		logging.FromContext(r.Context()).Info("no acceptable token representation",
			zap.String("accept", r.Header.Get(pkgoauth.HeaderAccept)))
		setNoStore(w)
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}

	var body bytes.Buffer
	if err := c.Write(&body, at); err != nil {
		h.responder.InternalError(w, fmt.Errorf("encode token: %w", err))
		return
	}

	setNoStore(w)
	w.Header().Set(pkgoauth.HeaderContentType, mediaType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body.Bytes()); err != nil {
		logging.FromContext(r.Context()).Debug("failed to write token response", zap.Error(err))
	}
}

// writeError renders an OAuth2 error with its status. When the Accept
// header cannot be satisfied the body is JSON.
func (h *tokenHandler) writeError(w http.ResponseWriter, r *http.Request, oauthErr *ierrors.OAuth2Error) {
	var body bytes.Buffer
	mediaType, err := h.errors.Write(&body, oauthErr, r.Header.Get(pkgoauth.HeaderAccept))
	if err != nil {
		if !errors.Is(err, transportcore.ErrNotAcceptable) {
			h.responder.InternalError(w, fmt.Errorf("encode error: %w", err))
			return
		}
		body.Reset()
		if err := h.fallback.Write(&body, oauthErr); err != nil {
			h.responder.InternalError(w, fmt.Errorf("encode error: %w", err))
			return
		}
		mediaType = pkgoauth.ContentTypeJSON
	}

	setNoStore(w)
	w.Header().Del(pkgoauth.HeaderSetCookie)
	w.Header().Set(pkgoauth.HeaderContentType, mediaType)
	if oauthErr.HTTPStatus() == http.StatusUnauthorized {
		w.Header().Set(pkgoauth.HeaderWWWAuthenticate, h.basicChallenge())
	}
	w.WriteHeader(oauthErr.HTTPStatus())
	if _, err := w.Write(body.Bytes()); err != nil {
		logging.FromContext(r.Context()).Debug("failed to write error response", zap.Error(err))
	}
}

func (h *tokenHandler) basicChallenge() string {
	if h.realm == "" {
		return pkgoauth.BasicScheme
	}
	return fmt.Sprintf(`%s realm="%s"`, pkgoauth.BasicScheme, h.realm)
}

// setNoStore applies the cache headers every token response carries.
func setNoStore(w http.ResponseWriter) {
	for key, values := range endpoint.ResponseHeaders() {
		for _, v := range values {
			w.Header().Set(key, v)
		}
	}
}
