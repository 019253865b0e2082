package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toolbox/internal/platform/metrics"
	id "toolbox/pkg/domain"
	adminmw "toolbox/pkg/platform/middleware/admin"
	authmw "toolbox/pkg/platform/middleware/auth"
	"toolbox/pkg/platform/middleware/metadata"
	request "toolbox/pkg/platform/middleware/request"
	"toolbox/pkg/platform/middleware/requesttime"
	"toolbox/pkg/platform/middleware/version"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Dependencies is everything the router composes. Admin routes are only
// mounted when AdminTokenHash is set.
type Dependencies struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Tokens      authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	Checkers    []Checker

	// Authenticated API handlers, mounted behind RequireAuth.
	API       []Registrar
	// RateLimit, when set, runs after authentication on every API route.
	RateLimit func(http.Handler) http.Handler

	Admin          Registrar
	AdminTokenHash string
}

// NewRouter wires the middleware chain and every endpoint.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(instrument(deps.Metrics))
	}

	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(deps.Checkers, logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Tokens, deps.Revocations, logger))
		r.Use(version.ExtractVersion(id.APIVersionV1))
		r.Use(version.ValidateTokenVersion(logger))
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}
		for _, h := range deps.API {
			h.Register(r)
		}
	})

	if deps.Admin != nil && deps.AdminTokenHash != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminTokenHash, logger))
			deps.Admin.Register(r)
		})
	}

	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records request count and latency by chi route pattern.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(route, r.Method, sw.status, time.Since(start))
		})
	}
}
