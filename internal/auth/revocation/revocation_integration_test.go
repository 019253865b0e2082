//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"toolbox/internal/auth/revocation"
	"toolbox/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTRLSuite) TestRevokeSetsKeyWithTTL() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.trl.RevokeToken(ctx, jti, time.Minute))

	revoked, err := s.trl.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "trl:jti:"+jti).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisTRLSuite) TestUnknownJTI() {
	revoked, err := s.trl.IsRevoked(context.Background(), uuid.NewString())
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisTRLSuite) TestEntryExpires() {
	ctx := context.Background()
	jti := uuid.NewString()
	s.Require().NoError(s.trl.RevokeToken(ctx, jti, time.Second))

	s.Eventually(func() bool {
		revoked, err := s.trl.IsRevoked(ctx, jti)
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

type PostgresTRLSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	now      time.Time
	trl      *revocation.PostgresTRL
}

func TestPostgresTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTRLSuite))
}

func (s *PostgresTRLSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.trl = revocation.NewPostgresTRL(s.postgres.DB, revocation.WithPostgresClock(func() time.Time { return s.now }))
}

func (s *PostgresTRLSuite) SetupTest() {
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "token_revocations"))
}

func (s *PostgresTRLSuite) TestRevokeAndExpire() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.trl.RevokeToken(ctx, jti, time.Minute))
	revoked, err := s.trl.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)

	s.now = s.now.Add(2 * time.Minute)
	revoked, err = s.trl.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	purged, err := s.trl.Purge(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), purged)
}

func (s *PostgresTRLSuite) TestRevokeTwiceExtendsExpiry() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.trl.RevokeToken(ctx, jti, time.Minute))
	s.Require().NoError(s.trl.RevokeToken(ctx, jti, time.Hour))

	s.now = s.now.Add(30 * time.Minute)
	revoked, err := s.trl.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}
