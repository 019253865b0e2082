package admin

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	authModels "toolbox/internal/auth/models"
	"toolbox/internal/auth/revocation"
	authService "toolbox/internal/auth/service"
	"toolbox/internal/auth/token"
	creditModels "toolbox/internal/credits/models"
	creditService "toolbox/internal/credits/service"
	creditStore "toolbox/internal/credits/store"
	jobModels "toolbox/internal/jobs/models"
	jobService "toolbox/internal/jobs/service"
	jobStore "toolbox/internal/jobs/store"
	id "toolbox/pkg/domain"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/audit/publisher"
	auditmemory "toolbox/pkg/platform/audit/store/memory"
	adminmw "toolbox/pkg/platform/middleware/admin"
	"toolbox/pkg/platform/secrets"
	"toolbox/pkg/testutil"
)

const adminToken = "operator-secret"

type AdminHandlerSuite struct {
	suite.Suite
	router     http.Handler
	tokens     *token.Service
	jobs       *jobService.Service
	auditStore *auditmemory.InMemoryStore
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.auditStore = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.auditStore)

	credits, err := creditService.New(creditStore.NewInMemoryLedgerStore(),
		creditService.WithSignupBonus(10),
		creditService.WithAuditPublisher(pub),
	)
	s.Require().NoError(err)

	s.tokens, err = token.New("test-key", "toolbox", "toolbox-api")
	s.Require().NoError(err)
	auth, err := authService.New(s.tokens, revocation.NewInMemoryTRL(), authService.WithAuditPublisher(pub))
	s.Require().NoError(err)

	s.jobs, err = jobService.New(jobStore.NewInMemoryJobStore())
	s.Require().NoError(err)

	hash, err := secrets.Hash(adminToken)
	s.Require().NoError(err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(hash, logger))
		New(credits, auth, s.jobs, s.auditStore, logger).Register(r)
	})
	s.router = r
}

func (s *AdminHandlerSuite) do(req *http.Request, withToken bool) *http.Request {
	if withToken {
		req.Header.Set(adminmw.HeaderAdminToken, adminToken)
	}
	return req
}

// =============================================================================
// Guard
// =============================================================================

func (s *AdminHandlerSuite) TestRequiresAdminToken() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	req = testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs")
	req.Header.Set(adminmw.HeaderAdminToken, "wrong")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
}

// =============================================================================
// Credits
// =============================================================================

func (s *AdminHandlerSuite) TestGrantCredits() {
	userID := uuid.NewString()

	s.Run("grant on top of signup bonus", func() {
		req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/credits/grant",
			creditModels.GrantRequest{UserID: userID, Amount: 5, Reason: "promo"}), true)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[creditModels.BalanceResponse](s.T(), rr)
		s.Equal(15, resp.Balance)
	})

	s.Run("grant is audited with the admin actor", func() {
		uid, err := id.ParseUserID(userID)
		s.Require().NoError(err)
		events, err := s.auditStore.ListByUser(context.Background(), uid)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventCreditsGranted), events[0].Action)
		s.Equal(ActorAdmin, events[0].ActorID)
	})

	s.Run("malformed user id", func() {
		req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/credits/grant",
			creditModels.GrantRequest{UserID: "nope", Amount: 5}), true)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("non-positive amount", func() {
		req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/credits/grant",
			creditModels.GrantRequest{UserID: userID, Amount: 0}), true)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("amount above the grant cap", func() {
		req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/credits/grant",
			creditModels.GrantRequest{UserID: userID, Amount: creditModels.MaxGrantAmount + 1}), true)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("unknown field", func() {
		req := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/admin/credits/grant",
			`{"user_id":"`+userID+`","amount":1,"extra":true}`), true)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

// =============================================================================
// Tokens
// =============================================================================

func (s *AdminHandlerSuite) TestIssueToken() {
	userID := id.UserID(uuid.New())
	req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/tokens",
		authModels.IssueTokenRequest{UserID: userID, TTLSeconds: 600}), true)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	resp := testutil.UnmarshalResponse[authModels.TokenResponse](s.T(), rr)
	s.Equal("Bearer", resp.TokenType)
	s.WithinDuration(time.Now().Add(10*time.Minute), resp.ExpiresAt, 5*time.Second)

	claims, err := s.tokens.ValidateToken(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(userID.String(), claims.UserID)
}

// =============================================================================
// Jobs and audit
// =============================================================================

func (s *AdminHandlerSuite) TestListJobs() {
	ctx := context.Background()
	a, err := s.jobs.Create(ctx, id.UserID(uuid.New()), "lootjes", nil)
	s.Require().NoError(err)
	b, err := s.jobs.Create(ctx, id.UserID(uuid.New()), "lootjes", nil)
	s.Require().NoError(err)
	s.Require().NoError(s.jobs.UpdateStatus(ctx, b, jobModels.StatusCompleted, map[string]bool{"ok": true}))

	s.Run("all statuses across users", func() {
		rr := testutil.DoRequest(s.router, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs?limit=10"), true))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[jobModels.ListResponse](s.T(), rr)
		s.Len(resp.Jobs, 2)
	})

	s.Run("status filter", func() {
		rr := testutil.DoRequest(s.router, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs?status=pending"), true))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[jobModels.ListResponse](s.T(), rr)
		s.Require().Len(resp.Jobs, 1)
		s.Equal(a, resp.Jobs[0].ID)
	})

	s.Run("unknown status", func() {
		rr := testutil.DoRequest(s.router, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs?status=pending,bogus"), true))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("negative limit", func() {
		rr := testutil.DoRequest(s.router, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/jobs?limit=-1"), true))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *AdminHandlerSuite) TestListAudit() {
	userID := id.UserID(uuid.New())
	req := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/tokens",
		authModels.IssueTokenRequest{UserID: userID}), true)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)

	rr := testutil.DoRequest(s.router, s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit?limit=5"), true))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[AuditListResponse](s.T(), rr)
	s.Require().Len(resp.Events, 1)
	s.Equal(string(audit.EventTokenIssued), resp.Events[0].Action)
}
