package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"toolbox/internal/auth/models"
	"toolbox/internal/auth/revocation"
	"toolbox/internal/auth/service/mocks"
	"toolbox/internal/auth/token"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/audit/publisher"
	auditmemory "toolbox/pkg/platform/audit/store/memory"
	"toolbox/pkg/requestcontext"
)

// =============================================================================
// Auth Service Test Suite
// =============================================================================

type AuthServiceSuite struct {
	suite.Suite
	tokens     *token.Service
	trl        *revocation.InMemoryTRL
	auditStore *auditmemory.InMemoryStore
	service    *Service
	now        time.Time
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.now = time.Now().Truncate(time.Second)
	var err error
	s.tokens, err = token.New("test-key", "toolbox", "toolbox-api")
	s.Require().NoError(err)
	s.trl = revocation.NewInMemoryTRL()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service, err = New(s.tokens, s.trl,
		WithDefaultTTL(time.Hour),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) TestNew() {
	s.Run("nil issuer", func() {
		_, err := New(nil, s.trl)
		s.Require().Error(err)
		s.Contains(err.Error(), "token issuer is required")
	})
	s.Run("nil revocation list", func() {
		_, err := New(s.tokens, nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "revocation list is required")
	})
}

// =============================================================================
// Issue
// =============================================================================

func (s *AuthServiceSuite) TestIssue() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	s.Run("default ttl", func() {
		resp, err := s.service.Issue(ctx, &models.IssueTokenRequest{UserID: userID}, "admin")
		s.Require().NoError(err)
		s.Equal("Bearer", resp.TokenType)
		s.WithinDuration(time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

		claims, err := s.tokens.ValidateToken(resp.AccessToken)
		s.Require().NoError(err)
		s.Equal(userID.String(), claims.UserID)
	})

	s.Run("explicit ttl", func() {
		resp, err := s.service.Issue(ctx, &models.IssueTokenRequest{UserID: userID, TTLSeconds: 60}, "admin")
		s.Require().NoError(err)
		s.WithinDuration(time.Now().Add(time.Minute), resp.ExpiresAt, 5*time.Second)
	})

	s.Run("audited as token_issued", func() {
		events, err := s.auditStore.ListByUser(ctx, userID)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(string(audit.EventTokenIssued), events[0].Action)
		s.Equal("admin", events[0].ActorID)
	})
}

func (s *AuthServiceSuite) TestIssueValidation() {
	ctx := context.Background()
	cases := []struct {
		name string
		req  *models.IssueTokenRequest
	}{
		{"nil request", nil},
		{"missing user", &models.IssueTokenRequest{}},
		{"negative ttl", &models.IssueTokenRequest{UserID: id.UserID(uuid.New()), TTLSeconds: -1}},
		{"ttl above max", &models.IssueTokenRequest{UserID: id.UserID(uuid.New()), TTLSeconds: int(models.MaxTokenTTL/time.Second) + 1}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Issue(ctx, tc.req, "admin")
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *AuthServiceSuite) TestIssueSigningFailure() {
	ctrl := gomock.NewController(s.T())
	issuer := mocks.NewMockTokenIssuer(ctrl)
	issuer.EXPECT().GenerateAccessToken(gomock.Any(), time.Hour).Return("", time.Time{}, errors.New("boom"))

	svc, err := New(issuer, s.trl, WithDefaultTTL(time.Hour))
	s.Require().NoError(err)

	_, err = svc.Issue(context.Background(), &models.IssueTokenRequest{UserID: id.UserID(uuid.New())}, "admin")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Logout
// =============================================================================

func (s *AuthServiceSuite) authedContext(userID id.UserID, jti string, expiresAt time.Time) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithToken(ctx, jti, expiresAt)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *AuthServiceSuite) TestLogout() {
	userID := id.UserID(uuid.New())

	s.Run("revokes the presented token", func() {
		ctx := s.authedContext(userID, "jti-1", s.now.Add(time.Hour))
		revoked, err := s.service.Logout(ctx)
		s.Require().NoError(err)
		s.True(revoked)

		isRevoked, err := s.trl.IsRevoked(ctx, "jti-1")
		s.Require().NoError(err)
		s.True(isRevoked)

		events, err := s.auditStore.ListByUser(ctx, userID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventTokenRevoked), events[0].Action)
		s.Equal("jti-1", events[0].Subject)
	})

	s.Run("expired token needs no revocation", func() {
		ctx := s.authedContext(userID, "jti-2", s.now.Add(-time.Second))
		revoked, err := s.service.Logout(ctx)
		s.Require().NoError(err)
		s.False(revoked)
		s.Equal(1, s.trl.Len())
	})

	s.Run("unauthenticated", func() {
		_, err := s.service.Logout(context.Background())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthServiceSuite) TestLogoutRevocationFailure() {
	ctrl := gomock.NewController(s.T())
	revoker := mocks.NewMockRevoker(ctrl)
	revoker.EXPECT().RevokeToken(gomock.Any(), "jti", time.Hour).Return(errors.New("redis down"))

	svc, err := New(s.tokens, revoker)
	s.Require().NoError(err)

	_, err = svc.Logout(s.authedContext(id.UserID(uuid.New()), "jti", s.now.Add(time.Hour)))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
