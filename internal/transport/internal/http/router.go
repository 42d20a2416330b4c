package http

import (
	"net/http"
	"sort"
	"sync"

	"github.com/jamesprial/oauth2-provider/internal/transport/transportcore"
)

// routeTable is shared by a router and every group derived from it.
type routeTable struct {
	mux *http.ServeMux

	mu       sync.Mutex
	patterns []string
}

// router implements transportcore.Router on http.ServeMux.
type router struct {
	routes *routeTable
	chain  []transportcore.Middleware
}

// NewRouter creates an empty router.
func NewRouter() transportcore.Router {
	return &router{routes: &routeTable{mux: http.NewServeMux()}}
}

// Handle registers handler for pattern behind the current chain.
func (r *router) Handle(pattern string, handler http.Handler) {
	wrapped := handler
	for i := len(r.chain) - 1; i >= 0; i-- {
		wrapped = r.chain[i](wrapped)
	}

	r.routes.mu.Lock()
	defer r.routes.mu.Unlock()
	r.routes.mux.Handle(pattern, wrapped)
	r.routes.patterns = append(r.routes.patterns, pattern)
}

func (r *router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

func (r *router) Use(middlewares ...transportcore.Middleware) {
	r.chain = append(r.chain, middlewares...)
}

func (r *router) With(middlewares ...transportcore.Middleware) transportcore.Router {
	chain := make([]transportcore.Middleware, 0, len(r.chain)+len(middlewares))
	chain = append(chain, r.chain...)
	chain = append(chain, middlewares...)
	return &router{routes: r.routes, chain: chain}
}

func (r *router) Routes() []string {
	r.routes.mu.Lock()
	defer r.routes.mu.Unlock()

	out := append([]string(nil), r.routes.patterns...)
	sort.Strings(out)
	return out
}

// ServeHTTP dispatches through the shared mux, so a group serves every
// route of its parent too.
func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.routes.mux.ServeHTTP(w, req)
}
