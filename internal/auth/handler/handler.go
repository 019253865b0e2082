package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"toolbox/internal/auth/models"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

// Service is the session side of auth the handler needs.
type Service interface {
	Logout(ctx context.Context) (bool, error)
}

type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the routes. The caller applies RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/logout", h.HandleLogout)
}

// HandleLogout revokes the bearer token used for this request.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	revoked, err := h.auth.Logout(ctx)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to revoke token",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.LogoutResponse{Revoked: revoked})
}
