package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

const (
	healthOK          = "ok"
	healthUnavailable = "unavailable"
)

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler reports whether the token store is reachable.
type healthHandler struct {
	checker transportcore.HealthChecker
}

// NewHealthHandler creates the /health handler. A nil checker always
// reports healthy.
func NewHealthHandler(checker transportcore.HealthChecker) http.Handler {
	return &healthHandler{checker: checker}
}

// ServeHTTP answers 200 {"status":"ok"}, or 503 {"status":"unavailable"}
// when the checker fails.
func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(pkgoauth.HeaderAllow, http.MethodGet+", "+http.MethodHead)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status, resp := http.StatusOK, healthResponse{Status: healthOK}
	if h.checker != nil {
		if err := h.checker.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
			status, resp = http.StatusServiceUnavailable, healthResponse{Status: healthUnavailable}
		}
	}

	w.Header().Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeJSON)
	w.Header().Set(pkgoauth.HeaderCacheControl, pkgoauth.CacheControlNoStore)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.FromContext(r.Context()).Error("failed to encode health response", zap.Error(err))
	}
}
