package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/obs"
	"github.com/tracelight/tracelight/pkg/slogx"
)

// Services bundles the service layer the router dispatches to.
type Services struct {
	Authorize    *service.AuthorizeService
	Tokens       *service.TokenService
	Scopes       *service.ScopeService
	Applications *service.ApplicationService
	Ranker       *service.RankerService
	Previews     *service.PreviewService
}

// Router wires handlers, per-route rate limits and the global middleware
// chain onto a ServeMux.
type Router struct {
	Mux *http.ServeMux

	// Global middlewares, applied to every route. First entry is outermost.
	middlewares []httpx.Middleware

	store     store.Store
	services  Services
	startTime time.Time
	version   string
}

// NewRouter builds the router and registers all routes.
func NewRouter(logger *slog.Logger, st store.Store, services Services, version string) *Router {
	r := &Router{
		Mux: http.NewServeMux(),
		middlewares: []httpx.Middleware{
			slogx.HTTPMiddleware(logger),
			obs.Instrument,
		},
		store:     st,
		services:  services,
		startTime: time.Now(),
		version:   version,
	}

	r.ApplyRoutes()
	return r
}

// ApplyRoutes registers all endpoints on the mux.
func (r *Router) ApplyRoutes() {
	r.registerOAuthRoutes()
	r.registerApplicationRoutes()
	r.registerTraceRoutes()
	r.registerHealthRoutes()
}

// ServeHTTP applies the global middleware chain and dispatches.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuthRoutes() {
	authorize := &AuthorizeHandler{AuthorizeService: r.services.Authorize}
	token := &TokenHandler{TokenService: r.services.Tokens}

	r.Mux.Handle("GET /oauth/authorize", httpx.Chain(
		http.HandlerFunc(authorize.HandleGet),
		httpx.RateLimitByIP(httpx.LenientLimit),
	))

	// Credential-bearing login POST: keyed on IP plus the attempted username
	// so one address can't brute-force many accounts in parallel.
	r.Mux.Handle("POST /oauth/authorize", httpx.Chain(
		http.HandlerFunc(authorize.HandlePost),
		httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
	))

	r.Mux.Handle("POST /oauth/token", httpx.Chain(
		token,
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
}

func (r *Router) registerApplicationRoutes() {
	applications := &ApplicationsHandler{ApplicationService: r.services.Applications}
	authn := RequireAccessToken(r.services.Scopes)

	r.Mux.Handle("POST /v1/applications", httpx.Chain(
		http.HandlerFunc(applications.HandleCreate),
		authn,
		httpx.RateLimitByUser(httpx.LenientLimit),
	))

	r.Mux.Handle("GET /v1/applications", httpx.Chain(
		http.HandlerFunc(applications.HandleList),
		authn,
		httpx.RateLimitByUser(httpx.LenientLimit),
	))

	r.Mux.Handle("PATCH /v1/applications/{id}", httpx.Chain(
		http.HandlerFunc(applications.HandleUpdate),
		authn,
		httpx.RateLimitByUser(httpx.LenientLimit),
	))

	r.Mux.Handle("DELETE /v1/applications/{id}", httpx.Chain(
		http.HandlerFunc(applications.HandleDelete),
		authn,
		httpx.RateLimitByUser(httpx.LenientLimit),
	))
}

func (r *Router) registerTraceRoutes() {
	trace := &TextTraceHandler{
		RankerService:  r.services.Ranker,
		PreviewService: r.services.Previews,
	}
	preview := &PreviewHandler{
		PreviewService: r.services.Previews,
		Store:          r.store,
	}

	// Authenticate first, then rate limit per user. The limiter sits between
	// authn and the handler so a throttled request is rejected before any
	// matcher runs.
	r.Mux.Handle("POST /open/text-trace", httpx.Chain(
		trace,
		RequireAccessToken(r.services.Scopes),
		httpx.RateLimitByUser(httpx.TraceLimit),
	))

	// Preview links open in browsers without a bearer token; the single-use
	// grant in the URL is the credential.
	r.Mux.Handle("GET /open/document/preview/{document_id}", httpx.Chain(
		preview,
		httpx.RateLimitByIP(httpx.LenientLimit),
	))
}

func (r *Router) registerHealthRoutes() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.version))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.version, r.store))
	r.Mux.Handle("GET /metrics", obs.Handler())
}
