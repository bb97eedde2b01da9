package httpserver

import (
	"net/http"

	"ruconnect/internal/platform/config"
)

// New builds an HTTP server with the configured timeouts. The WebSocket
// event stream holds connections open, so WriteTimeout applies only to
// the JSON API paths; the hub enforces its own write deadlines.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
