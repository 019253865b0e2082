package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toolbox/internal/auth/models"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, ttl time.Duration) (string, time.Time, error)
}

// Revoker records revoked jtis until the token would have expired anyway.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service issues and revokes access tokens.
type Service struct {
	issuer         TokenIssuer
	revocations    Revoker
	defaultTTL     time.Duration
	auditPublisher audit.Emitter
	logger         *slog.Logger
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

// WithDefaultTTL sets the lifetime used when a request names none.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 && ttl <= models.MaxTokenTTL {
			s.defaultTTL = ttl
		}
	}
}

func New(issuer TokenIssuer, revocations Revoker, opts ...Option) (*Service, error) {
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation list is required")
	}
	svc := &Service{
		issuer:      issuer,
		revocations: revocations,
		defaultTTL:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue signs a token for req.UserID. actorID names the operator asking.
func (s *Service) Issue(ctx context.Context, req *models.IssueTokenRequest, actorID string) (*models.TokenResponse, error) {
	if req == nil || req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if req.TTLSeconds < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ttl_seconds must not be negative")
	}
	ttl := s.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if ttl > models.MaxTokenTTL {
		return nil, dErrors.New(dErrors.CodeValidation, "ttl_seconds exceeds the maximum token lifetime")
	}

	signed, expiresAt, err := s.issuer.GenerateAccessToken(req.UserID, ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:  req.UserID,
		Action:  string(audit.EventTokenIssued),
		ActorID: actorID,
	}, "expires_at", expiresAt)

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   models.TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout revokes the token that authenticated the request. It reports false
// when the token has already expired and nothing needed revoking.
func (s *Service) Logout(ctx context.Context) (bool, error) {
	userID := requestcontext.UserID(ctx)
	jti := requestcontext.TokenID(ctx)
	if userID.IsNil() || jti == "" {
		return false, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	remaining := requestcontext.TokenExpiry(ctx).Sub(requestcontext.Now(ctx))
	if remaining <= 0 {
		return false, nil
	}
	if err := s.revocations.RevokeToken(ctx, jti, remaining); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:  userID,
		Subject: jti,
		Action:  string(audit.EventTokenRevoked),
		Reason:  "logout",
	})
	return true, nil
}
