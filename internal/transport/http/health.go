package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ruconnect/pkg/platform/httputil"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse reports liveness plus the state of each backing
// dependency. Status is "ok" only when every check passes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth pings every registered dependency with a short deadline.
// An unhealthy dependency turns the overall status and the HTTP code;
// the daemon itself answering is the liveness half.
func handleHealth(logger *slog.Logger, checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok"}
		if len(checkers) > 0 {
			resp.Checks = make(map[string]string, len(checkers))
		}
		for _, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"dependency", checker.Name,
					"error", err,
				)
				resp.Checks[checker.Name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[checker.Name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
