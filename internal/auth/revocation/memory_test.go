package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"toolbox/pkg/platform/sentinel"
)

type InMemoryTRLSuite struct {
	suite.Suite
	now time.Time
	trl *InMemoryTRL
}

func TestInMemoryTRLSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTRLSuite))
}

func (s *InMemoryTRLSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.trl = NewInMemoryTRL(WithInMemoryClock(func() time.Time { return s.now }))
}

// =============================================================================
// Revoke and lookup
// =============================================================================

func (s *InMemoryTRLSuite) TestRevokeThenLookup() {
	ctx := context.Background()

	s.Run("unknown jti is not revoked", func() {
		revoked, err := s.trl.IsRevoked(ctx, "unknown")
		s.Require().NoError(err)
		s.False(revoked)
	})

	s.Run("revoked jti is reported until expiry", func() {
		s.Require().NoError(s.trl.RevokeToken(ctx, "jti-1", time.Minute))

		revoked, err := s.trl.IsRevoked(ctx, "jti-1")
		s.Require().NoError(err)
		s.True(revoked)

		s.now = s.now.Add(time.Minute)
		revoked, err = s.trl.IsRevoked(ctx, "jti-1")
		s.Require().NoError(err)
		s.False(revoked)
		s.Equal(0, s.trl.Len())
	})
}

func (s *InMemoryTRLSuite) TestEmptyJTIIsIgnored() {
	ctx := context.Background()
	s.Require().NoError(s.trl.RevokeToken(ctx, "", time.Minute))
	s.Equal(0, s.trl.Len())

	revoked, err := s.trl.IsRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *InMemoryTRLSuite) TestNonPositiveTTLRejected() {
	err := s.trl.RevokeToken(context.Background(), "jti", 0)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *InMemoryTRLSuite) TestWriteSweepsExpired() {
	ctx := context.Background()
	s.Require().NoError(s.trl.RevokeToken(ctx, "old", time.Second))
	s.now = s.now.Add(time.Hour)
	s.Require().NoError(s.trl.RevokeToken(ctx, "new", time.Minute))

	s.Equal(1, s.trl.Len())
}
