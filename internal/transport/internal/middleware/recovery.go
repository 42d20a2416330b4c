package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// NewRecoveryMiddleware creates middleware that recovers from panics.
// It logs the panic with a stack trace and returns a 500 Internal Server Error
// to the client to prevent connection termination.
// If logger is nil, the request-scoped logger from the context is used.
func NewRecoveryMiddleware(responder transportcore.ErrorResponder, logger *zap.Logger) transportcore.Middleware {
	if responder == nil {
		panic("responder cannot be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					l := logger
					if l == nil {
						l = logging.FromContext(r.Context())
					}
					l.Error("panic recovered",
						zap.Any("panic", recovered),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)

					responder.InternalError(w, fmt.Errorf("panic: %v", recovered))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
