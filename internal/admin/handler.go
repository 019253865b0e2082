// Package admin serves the operator console API: credit grants, development
// access tokens, and cross-user job and audit listings. Routes are mounted
// behind the admin token middleware.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authModels "toolbox/internal/auth/models"
	creditModels "toolbox/internal/credits/models"
	jobModels "toolbox/internal/jobs/models"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

type CreditGranter interface {
	Grant(ctx context.Context, userID id.UserID, amount int, reason, actorID string) (*creditModels.Account, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, req *authModels.IssueTokenRequest, actorID string) (*authModels.TokenResponse, error)
}

type JobLister interface {
	Recent(ctx context.Context, limit int, statuses []jobModels.Status) ([]*jobModels.Job, error)
}

type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	credits CreditGranter
	tokens  TokenIssuer
	jobs    JobLister
	audit   AuditReader
	logger  *slog.Logger
}

// New builds the admin handler. audit may be nil, which disables /admin/audit.
func New(credits CreditGranter, tokens TokenIssuer, jobs JobLister, auditReader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{
		credits: credits,
		tokens:  tokens,
		jobs:    jobs,
		audit:   auditReader,
		logger:  logger,
	}
}

// Register mounts the routes. The caller applies RequireAdminToken.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/credits/grant", h.HandleGrantCredits)
	r.Post("/admin/tokens", h.HandleIssueToken)
	r.Get("/admin/jobs", h.HandleListJobs)
	if h.audit != nil {
		r.Get("/admin/audit", h.HandleListAudit)
	}
}

func (h *Handler) HandleGrantCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req creditModels.GrantRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(strings.TrimSpace(req.UserID))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "user_id must be a UUID"))
		return
	}

	acct, err := h.credits.Grant(ctx, userID, req.Amount, req.Reason, ActorAdmin)
	if err != nil {
		h.logFailure(ctx, "failed to grant credits", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, creditModels.BalanceResponse{UserID: acct.UserID, Balance: acct.Balance})
}

func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req authModels.IssueTokenRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp, err := h.tokens.Issue(ctx, &req, ActorAdmin)
	if err != nil {
		h.logFailure(ctx, "failed to issue access token", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleListJobs lists recent jobs across users. ?status= takes a comma
// separated list.
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := httputil.ParseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	jobs, err := h.jobs.Recent(ctx, limit, statuses)
	if err != nil {
		h.logFailure(ctx, "failed to list jobs", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, jobModels.ListResponse{Jobs: jobs})
}

func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := httputil.ParseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	switch {
	case limit == 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	events, err := h.audit.ListRecent(ctx, limit)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
		h.logFailure(ctx, "failed to list audit events", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditListResponse{Events: events})
}

func parseStatuses(raw string) ([]jobModels.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []jobModels.Status
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		status, err := jobModels.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
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
