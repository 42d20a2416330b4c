// Package handlers provides the HTTP handlers mounted by the transport layer.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/oauth"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// metadataHandler publishes the RFC 8414 authorization server metadata
// document.
type metadataHandler struct {
	service   oauth.MetadataService
	responder transportcore.ErrorResponder
}

// NewMetadataHandler creates the /.well-known/oauth-authorization-server
// handler. It panics on nil arguments.
func NewMetadataHandler(service oauth.MetadataService, responder transportcore.ErrorResponder) http.Handler {
	switch {
	case service == nil:
		panic("metadata service cannot be nil")
	case responder == nil:
		panic("responder cannot be nil")
	}
	return &metadataHandler{service: service, responder: responder}
}

func (h *metadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(pkgoauth.HeaderAllow, http.MethodGet+", "+http.MethodHead)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metadata, err := h.service.GetMetadata(r.Context())
	if err != nil {
		h.responder.InternalError(w, err)
		return
	}

	w.Header().Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		logging.FromContext(r.Context()).Error("failed to encode metadata", zap.Error(err))
	}
}
