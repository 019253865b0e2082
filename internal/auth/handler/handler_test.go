package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"toolbox/internal/auth/models"
	"toolbox/internal/auth/revocation"
	"toolbox/internal/auth/service"
	"toolbox/internal/auth/token"
	"toolbox/pkg/testutil"
)

type LogoutHandlerSuite struct {
	suite.Suite
	router http.Handler
	trl    *revocation.InMemoryTRL
}

func TestLogoutHandlerSuite(t *testing.T) {
	suite.Run(t, new(LogoutHandlerSuite))
}

func (s *LogoutHandlerSuite) SetupTest() {
	tokens, err := token.New("test-key", "toolbox", "toolbox-api")
	s.Require().NoError(err)
	s.trl = revocation.NewInMemoryTRL()
	svc, err := service.New(tokens, s.trl)
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)
	s.router = r
}

func (s *LogoutHandlerSuite) TestLogout() {
	s.Run("revokes presented token", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/auth/logout")
		req = testutil.WithAuth(req, uuid.NewString(), "jti-logout", time.Now().Add(time.Hour))

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.LogoutResponse](s.T(), rr)
		s.True(resp.Revoked)

		revoked, err := s.trl.IsRevoked(req.Context(), "jti-logout")
		s.Require().NoError(err)
		s.True(revoked)
	})

	s.Run("without auth context", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/auth/logout")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}
