package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

const readinessTimeout = 2 * time.Second

// Checker is a dependency that must be reachable for the process to serve.
type Checker interface {
	Name() string
	Health(ctx context.Context) error
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, readinessResponse{Status: "ok"})
}

func handleReady(checkers []Checker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := readinessResponse{Status: "ok", Checks: make(map[string]string, len(checkers))}
		status := http.StatusOK
		for _, c := range checkers {
			if err := c.Health(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed",
					"check", c.Name(),
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				resp.Checks[c.Name()] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name()] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
