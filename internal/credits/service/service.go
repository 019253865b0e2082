package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"toolbox/internal/credits/metrics"
	"toolbox/internal/credits/models"
	"toolbox/internal/platform/tracing"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/sentinel"
	"toolbox/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists accounts and ledger entries.
type Store interface {
	FindAccount(ctx context.Context, userID id.UserID) (*models.Account, error)
	OpenAccount(ctx context.Context, userID id.UserID, opening int, reason string, now time.Time) (*models.Account, error)
	Apply(ctx context.Context, userID id.UserID, delta int, reason string, now time.Time) (*models.Account, *models.Entry, error)
	ListEntries(ctx context.Context, userID id.UserID, limit int) ([]*models.Entry, error)
}

// Service is the credit ledger: balances are opened lazily with the signup
// bonus and only ever change through ledger entries.
type Service struct {
	store          Store
	signupBonus    int
	auditPublisher audit.Emitter
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSignupBonus sets the opening balance of new accounts.
func WithSignupBonus(amount int) Option {
	return func(s *Service) {
		if amount >= 0 {
			s.signupBonus = amount
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("credits store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Account returns the user's account, opening it on first use.
func (s *Service) Account(ctx context.Context, userID id.UserID) (*models.Account, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	acct, err := s.store.FindAccount(ctx, userID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit account")
	}

	acct, err = s.store.OpenAccount(ctx, userID, s.signupBonus, models.ReasonSignupBonus, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open credit account")
	}
	if s.metrics != nil {
		s.metrics.IncrementAccountsOpened()
		s.metrics.AddGranted(s.signupBonus)
	}
	return acct, nil
}

func (s *Service) Balance(ctx context.Context, userID id.UserID) (int, error) {
	acct, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Debit charges amount. It never overdraws: a short balance fails with
// CodeInsufficientCredits and leaves the account untouched.
func (s *Service) Debit(ctx context.Context, userID id.UserID, amount int, reason string) (acct *models.Account, err error) {
	ctx, span := tracing.Start(ctx, "credits.debit", attribute.Int("credits.amount", amount))
	defer func() { tracing.End(span, err) }()

	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	reason, err = normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if _, err := s.Account(ctx, userID); err != nil {
		return nil, err
	}

	acct, entry, err := s.store.Apply(ctx, userID, -amount, reason, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInsufficient) {
			if s.metrics != nil {
				s.metrics.IncrementInsufficient()
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInsufficientCredits, "insufficient credits")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit credits")
	}

	if s.metrics != nil {
		s.metrics.AddDebited(amount)
	}
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:  userID,
		Subject: entry.ID.String(),
		Action:  string(audit.EventCreditsDebited),
		Reason:  reason,
	}, "amount", amount, "balance_after", acct.Balance)

	return acct, nil
}

// Grant tops up an account. actorID names who granted it, for the audit trail.
func (s *Service) Grant(ctx context.Context, userID id.UserID, amount int, reason, actorID string) (*models.Account, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	if amount > models.MaxGrantAmount {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"amount must be at most "+strconv.Itoa(models.MaxGrantAmount))
	}
	if strings.TrimSpace(reason) == "" {
		reason = models.ReasonAdminGrant
	}
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	current, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount > models.MaxBalance-current.Balance {
		return nil, errBalanceLimit(sentinel.ErrLimitExceeded)
	}

	acct, entry, err := s.store.Apply(ctx, userID, amount, reason, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrLimitExceeded) {
			return nil, errBalanceLimit(err)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant credits")
	}

	if s.metrics != nil {
		s.metrics.AddGranted(amount)
	}
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:  userID,
		Subject: entry.ID.String(),
		Action:  string(audit.EventCreditsGranted),
		Reason:  reason,
		ActorID: actorID,
	}, "amount", amount, "balance_after", acct.Balance)

	return acct, nil
}

// Entries lists the newest ledger entries. limit <= 0 selects the default;
// larger than MaxEntryLimit is capped.
func (s *Service) Entries(ctx context.Context, userID id.UserID, limit int) ([]*models.Entry, error) {
	if _, err := s.Account(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credit entries")
	}
	if entries == nil {
		entries = []*models.Entry{}
	}
	return entries, nil
}

func errBalanceLimit(err error) error {
	return dErrors.Wrap(err, dErrors.CodeBadRequest,
		"grant would exceed the maximum balance of "+strconv.Itoa(models.MaxBalance))
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	if len(reason) > models.MaxReasonLength {
		return "", dErrors.New(dErrors.CodeBadRequest,
			"reason must be at most "+strconv.Itoa(models.MaxReasonLength)+" characters")
	}
	return reason, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultEntryLimit
	}
	if limit > models.MaxEntryLimit {
		return models.MaxEntryLimit
	}
	return limit
}
