package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"toolbox/internal/jobs/models"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

// Service defines the job history operations exposed to account holders.
type Service interface {
	Get(ctx context.Context, userID id.UserID, jobID id.JobID) (*models.Job, error)
	History(ctx context.Context, userID id.UserID, limit int) ([]*models.Job, error)
}

type Handler struct {
	jobs   Service
	logger *slog.Logger
}

func New(jobs Service, logger *slog.Logger) *Handler {
	return &Handler{jobs: jobs, logger: logger}
}

// Register mounts the routes. The caller applies RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/jobs", h.HandleHistory)
	r.Get("/v1/jobs/{id}", h.HandleGet)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit, err := httputil.ParseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	jobs, err := h.jobs.History(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list jobs",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Jobs: jobs})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	jobID, err := id.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	job, err := h.jobs.Get(ctx, userID, jobID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to load job",
				"request_id", requestcontext.RequestID(ctx),
				"job_id", jobID.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}
