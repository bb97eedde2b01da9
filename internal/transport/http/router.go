// Package http assembles the daemon's HTTP surface: the middleware
// chain, the public endpoints, and the authenticated API behind the
// bearer-token middleware.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ruconnect/internal/platform/metrics"
	"ruconnect/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// FeatureHandler mounts endpoints that require authentication.
type FeatureHandler interface {
	RegisterProtected(r chi.Router)
}

// PublicHandler mounts endpoints that work without a bearer token.
type PublicHandler interface {
	Register(r chi.Router)
}

// HealthChecker reports the health of one backing dependency.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps carries everything the router mounts. Nil feature handlers are
// skipped, so the daemon can run with Bluetooth or Redis disabled.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Public    []PublicHandler
	Protected []FeatureHandler

	// EventStream serves GET /bluetooth/events; nil when Bluetooth is
	// disabled. It sits inside the authenticated group but outside the
	// request deadline, which would kill the held connection.
	EventStream http.HandlerFunc

	JWTValidator      middleware.JWTValidator
	RevocationChecker middleware.TokenRevocationChecker

	Health []HealthChecker
}

// New assembles the router. The middleware order is fixed: request ID
// first so everything downstream can correlate, recovery outermost
// among the observers, then logging, latency and the request deadline.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))

	r.Get("/healthz", handleHealth(deps.Logger, deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// JSON API, public.
	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		for _, h := range deps.Public {
			h.Register(api)
		}
	})

	// JSON API, authenticated.
	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.RevocationChecker, deps.Logger))
		for _, h := range deps.Protected {
			if h != nil {
				h.RegisterProtected(api)
			}
		}
	})

	// The WebSocket stream authenticates like the API but holds its
	// connection open, so it stays outside the request deadline.
	if deps.EventStream != nil {
		r.Group(func(stream chi.Router) {
			stream.Use(middleware.RequireAuth(deps.JWTValidator, deps.RevocationChecker, deps.Logger))
			stream.Get("/bluetooth/events", deps.EventStream)
		})
	}

	return r
}
