package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	creditModels "toolbox/internal/credits/models"
	"toolbox/internal/draw"
	"toolbox/internal/draw/metrics"
	"toolbox/internal/draw/models"
	jobModels "toolbox/internal/jobs/models"
	"toolbox/internal/platform/tracing"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/audit"
	pstrings "toolbox/pkg/platform/strings"
	"toolbox/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const debitReason = "lootjes draw"

// Ledger charges for draws.
type Ledger interface {
	Balance(ctx context.Context, userID id.UserID) (int, error)
	Debit(ctx context.Context, userID id.UserID, amount int, reason string) (*creditModels.Account, error)
}

// Jobs records each draw for the user's history.
type Jobs interface {
	Create(ctx context.Context, userID id.UserID, tool string, input any) (id.JobID, error)
	UpdateStatus(ctx context.Context, jobID id.JobID, status jobModels.Status, payload any) error
	Fail(ctx context.Context, jobID id.JobID, cause error) error
}

// Service runs the paid gift draw: balance check, job record, generation,
// debit. Generation has no side effects, so a failed debit can be retried
// by running the whole request again.
type Service struct {
	ledger         Ledger
	jobs           Jobs
	creditCost     int
	maxAttempts    int
	sources        draw.SourceFactory
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

// WithCreditCost sets the price of one draw. Zero makes draws free.
func WithCreditCost(cost int) Option {
	return func(s *Service) {
		if cost >= 0 {
			s.creditCost = cost
		}
	}
}

// WithMaxAttempts sets the retry bound and the ceiling for per-request overrides.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithSourceFactory replaces the secure random source, e.g. with seeded
// sources in tests.
func WithSourceFactory(f draw.SourceFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.sources = f
		}
	}
}

func New(ledger Ledger, jobs Jobs, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("credit ledger is required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job store is required")
	}
	svc := &Service{
		ledger:      ledger,
		jobs:        jobs,
		creditCost:  1,
		maxAttempts: draw.DefaultMaxAttempts,
		sources:     draw.NewSecureSource,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// normalized is a request after trimming, ready for the generator.
type normalized struct {
	participants []string
	restrictions []draw.Restriction
	budget       string
	maxAttempts  int
}

// Generate runs one draw for the authenticated user.
func (s *Service) Generate(ctx context.Context, req *models.DrawRequest) (resp *models.DrawResponse, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "draw.generate")
	defer func() {
		tracing.End(span, err)
		if s.metrics != nil {
			s.metrics.ObserveDuration(time.Since(start))
		}
	}()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	in, err := s.normalize(req)
	if err != nil {
		s.reject(ctx, userID, metrics.OutcomeInvalid, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("draw.participants", len(in.participants)),
		attribute.Int("draw.restrictions", len(in.restrictions)),
		attribute.Int("draw.max_attempts", in.maxAttempts),
	)

	if s.creditCost > 0 {
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			s.countOutcome(metrics.OutcomeError)
			return nil, err
		}
		if balance < s.creditCost {
			err := dErrors.New(dErrors.CodeInsufficientCredits,
				"a draw costs "+strconv.Itoa(s.creditCost)+" credits, balance is "+strconv.Itoa(balance))
			s.reject(ctx, userID, metrics.OutcomeInsufficient, err)
			return nil, err
		}
	}

	jobID, err := s.jobs.Create(ctx, userID, models.ToolLootjes, models.JobInput{
		Participants: in.participants,
		Restrictions: in.restrictions,
		Budget:       in.budget,
	})
	if err != nil {
		s.countOutcome(metrics.OutcomeError)
		return nil, err
	}
	span.SetAttributes(attribute.String("job.id", jobID.String()))

	gen := draw.New(draw.WithMaxAttempts(in.maxAttempts), draw.WithRandomSource(s.sources()))
	result, err := gen.Generate(in.participants, in.restrictions)
	if err != nil {
		s.failJob(ctx, jobID, err)
		if errors.Is(err, draw.ErrInvalidInput) {
			err = invalidInput(err)
			s.reject(ctx, userID, metrics.OutcomeInvalid, err)
			return nil, err
		}
		s.countOutcome(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "draw failed")
	}

	remaining := 0
	if s.creditCost > 0 {
		acct, err := s.ledger.Debit(ctx, userID, s.creditCost, debitReason)
		if err != nil {
			s.failJob(ctx, jobID, err)
			if dErrors.HasCode(err, dErrors.CodeInsufficientCredits) {
				s.reject(ctx, userID, metrics.OutcomeInsufficient, err)
			} else {
				s.countOutcome(metrics.OutcomeError)
			}
			return nil, err
		}
		remaining = acct.Balance
	} else if remaining, err = s.ledger.Balance(ctx, userID); err != nil {
		s.countOutcome(metrics.OutcomeError)
		return nil, err
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, jobModels.StatusCompleted, result); err != nil && s.logger != nil {
		// Already charged: the draw is returned even if history lags.
		s.logger.ErrorContext(ctx, "failed to complete draw job",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID.String(),
			"error", err,
		)
	}

	s.recordSuccess(ctx, userID, jobID, in, result)

	return &models.DrawResponse{
		JobID:                      jobID,
		Assignments:                result.Assignments,
		FullyRestrictionsSatisfied: result.FullyRestrictionsSatisfied,
		Attempts:                   result.Attempts,
		CreditsRemaining:           remaining,
		Budget:                     in.budget,
	}, nil
}

func invalidInput(err error) error {
	return dErrors.Wrap(err, dErrors.CodeValidation, "invalid draw input")
}

// normalize trims the request and rejects any participant list the generator
// would refuse, before the ledger is consulted.
func (s *Service) normalize(req *models.DrawRequest) (*normalized, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "request body is required")
	}

	participants := pstrings.TrimNonEmpty(req.Participants)
	if len(participants) > models.MaxParticipants {
		return nil, dErrors.New(dErrors.CodeValidation,
			"at most "+strconv.Itoa(models.MaxParticipants)+" participants are allowed")
	}
	for _, p := range participants {
		if utf8.RuneCountInString(p) > models.MaxNameLength {
			return nil, dErrors.New(dErrors.CodeValidation,
				"participant names must be at most "+strconv.Itoa(models.MaxNameLength)+" characters")
		}
	}
	if err := draw.ValidateParticipants(participants); err != nil {
		return nil, invalidInput(err)
	}

	if len(req.Restrictions) > models.MaxRestrictions {
		return nil, dErrors.New(dErrors.CodeValidation,
			"at most "+strconv.Itoa(models.MaxRestrictions)+" restrictions are allowed")
	}
	restrictions := make([]draw.Restriction, 0, len(req.Restrictions))
	for _, r := range req.Restrictions {
		if len(r.Forbidden) > models.MaxForbidden {
			return nil, dErrors.New(dErrors.CodeValidation,
				"a restriction may forbid at most "+strconv.Itoa(models.MaxForbidden)+" names")
		}
		giver := strings.TrimSpace(r.Giver)
		forbidden := pstrings.DedupeAndTrim(r.Forbidden)
		if giver == "" || len(forbidden) == 0 {
			continue
		}
		restrictions = append(restrictions, draw.Restriction{Giver: giver, Forbidden: forbidden})
	}

	budget := strings.TrimSpace(req.Budget)
	if utf8.RuneCountInString(budget) > models.MaxBudgetLength {
		return nil, dErrors.New(dErrors.CodeValidation,
			"budget must be at most "+strconv.Itoa(models.MaxBudgetLength)+" characters")
	}

	attempts := s.maxAttempts
	switch {
	case req.MaxAttempts < 0:
		return nil, dErrors.New(dErrors.CodeValidation, "max_attempts must not be negative")
	case req.MaxAttempts > 0 && req.MaxAttempts < attempts:
		attempts = req.MaxAttempts
	}

	return &normalized{
		participants: participants,
		restrictions: restrictions,
		budget:       budget,
		maxAttempts:  attempts,
	}, nil
}

func (s *Service) failJob(ctx context.Context, jobID id.JobID, cause error) {
	if err := s.jobs.Fail(ctx, jobID, cause); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to mark draw job failed",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID.String(),
			"error", err,
		)
	}
}

func (s *Service) reject(ctx context.Context, userID id.UserID, outcome string, cause error) {
	s.countOutcome(outcome)
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:   userID,
		Action:   string(audit.EventDrawRejected),
		Decision: outcome,
		Reason:   cause.Error(),
	})
}

func (s *Service) recordSuccess(ctx context.Context, userID id.UserID, jobID id.JobID, in *normalized, result *draw.Result) {
	outcome := metrics.OutcomeSatisfied
	if !result.FullyRestrictionsSatisfied {
		outcome = metrics.OutcomeFallback
		if s.logger != nil {
			s.logger.WarnContext(ctx, "draw fell back to an unrestricted assignment",
				"request_id", requestcontext.RequestID(ctx),
				"job_id", jobID.String(),
				"participants", len(in.participants),
				"restrictions", len(in.restrictions),
				"attempts", result.Attempts,
			)
		}
	}

	s.countOutcome(outcome)
	if s.metrics != nil {
		s.metrics.ObserveGeneration(result.Attempts, len(in.participants))
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:   userID,
		Subject:  jobID.String(),
		Action:   string(audit.EventDrawGenerated),
		Decision: outcome,
	}, "participants", len(in.participants), "attempts", result.Attempts)
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(outcome)
	}
}
