package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"toolbox/internal/credits/models"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

// Service defines the ledger operations exposed to account holders.
type Service interface {
	Account(ctx context.Context, userID id.UserID) (*models.Account, error)
	Entries(ctx context.Context, userID id.UserID, limit int) ([]*models.Entry, error)
}

// Handler serves the authenticated credit endpoints.
type Handler struct {
	credits Service
	logger  *slog.Logger
}

func New(credits Service, logger *slog.Logger) *Handler {
	return &Handler{credits: credits, logger: logger}
}

// Register mounts the routes. The caller applies RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/credits", h.HandleBalance)
	r.Get("/v1/credits/entries", h.HandleEntries)
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	acct, err := h.credits.Account(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "failed to load credit balance", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.BalanceResponse{UserID: acct.UserID, Balance: acct.Balance})
}

func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit, err := httputil.ParseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.credits.Entries(ctx, userID, limit)
	if err != nil {
		h.logFailure(ctx, "failed to list credit entries", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.EntriesResponse{Entries: entries})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
