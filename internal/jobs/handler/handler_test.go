package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"toolbox/internal/jobs/models"
	"toolbox/internal/jobs/service"
	"toolbox/internal/jobs/store"
	id "toolbox/pkg/domain"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

type JobsHandlerSuite struct {
	suite.Suite
	router  http.Handler
	service *service.Service
	owner   id.UserID
	jobID   id.JobID
}

func TestJobsHandlerSuite(t *testing.T) {
	suite.Run(t, new(JobsHandlerSuite))
}

func (s *JobsHandlerSuite) SetupTest() {
	var err error
	s.service, err = service.New(store.NewInMemoryJobStore())
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)
	s.router = r

	s.owner = id.UserID(uuid.New())
	s.jobID, err = s.service.Create(requestcontext.WithUserID(s.T().Context(), s.owner), s.owner, "lootjes", map[string]int{"n": 3})
	s.Require().NoError(err)
}

func (s *JobsHandlerSuite) do(path string, userID id.UserID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if !userID.IsNil() {
		req = req.WithContext(requestcontext.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *JobsHandlerSuite) TestHistory() {
	rec := s.do("/v1/jobs?limit=10", s.owner)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp models.ListResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Require().Len(resp.Jobs, 1)
	s.Equal(s.jobID, resp.Jobs[0].ID)
}

func (s *JobsHandlerSuite) TestGet() {
	s.Run("owner sees job", func() {
		rec := s.do("/v1/jobs/"+s.jobID.String(), s.owner)
		s.Require().Equal(http.StatusOK, rec.Code)
		var job models.Job
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&job))
		s.Equal(models.StatusPending, job.Status)
		s.JSONEq(`{"n":3}`, string(job.Input))
	})

	s.Run("other user gets not found", func() {
		rec := s.do("/v1/jobs/"+s.jobID.String(), id.UserID(uuid.New()))
		s.Equal(http.StatusNotFound, rec.Code)
		var body httputil.ErrorResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("not_found", body.Error)
	})

	s.Run("malformed id is bad request", func() {
		rec := s.do("/v1/jobs/not-a-uuid", s.owner)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("anonymous is unauthorized", func() {
		rec := s.do("/v1/jobs/"+s.jobID.String(), id.UserID{})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
