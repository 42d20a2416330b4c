package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// tokenInfoResponse describes the grant behind the presented bearer token.
type tokenInfoResponse struct {
	Active   bool   `json:"active"`
	ClientID string `json:"client_id"`
	Subject  string `json:"sub"`
	Scope    string `json:"scope,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
	Issuer   string `json:"iss,omitempty"`
}

// tokenInfoHandler reports the claims of an authenticated request.
type tokenInfoHandler struct {
	responder transportcore.ErrorResponder
}

// NewTokenInfoHandler creates the handler for GET /oauth/token_info. It must
// run behind the authentication middleware.
func NewTokenInfoHandler(responder transportcore.ErrorResponder) http.Handler {
	if responder == nil {
		panic("responder cannot be nil")
	}
	return &tokenInfoHandler{responder: responder}
}

// ServeHTTP handles GET requests for token information.
func (h *tokenInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set(pkgoauth.HeaderAllow, http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := transportcore.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		h.responder.Unauthorized(w, "", transportcore.ErrMissingToken)
		return
	}

	resp := tokenInfoResponse{
		Active:   true,
		ClientID: claims.ClientID,
		Subject:  claims.Subject,
		Scope:    strings.Join(claims.Scopes, " "),
		Issuer:   claims.Issuer,
	}
	if !claims.ExpiresAt.IsZero() {
		resp.Exp = claims.ExpiresAt.Unix()
	}

	setNoStore(w)
	w.Header().Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// Can't send error response here since headers are already written
		logging.FromContext(r.Context()).Error("failed to encode token info", zap.Error(err))
	}
}
