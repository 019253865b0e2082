package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"toolbox/internal/draw/models"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

type Service interface {
	Generate(ctx context.Context, req *models.DrawRequest) (*models.DrawResponse, error)
}

// Handler serves the gift draw tool.
type Handler struct {
	draws  Service
	logger *slog.Logger
}

func New(draws Service, logger *slog.Logger) *Handler {
	return &Handler{draws: draws, logger: logger}
}

// Register mounts the routes. The caller applies RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/tools/lootjes", h.HandleDraw)
}

func (h *Handler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.DrawRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp, err := h.draws.Generate(ctx, &req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "draw failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
