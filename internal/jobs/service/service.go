package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"toolbox/internal/jobs/models"
	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	"toolbox/pkg/platform/sentinel"
	"toolbox/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists job records.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	UpdateStatus(ctx context.Context, jobID id.JobID, status models.Status, output json.RawMessage, errMsg string, now time.Time) error
	FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error)
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Job, error)
	ListRecent(ctx context.Context, limit int, statuses []models.Status) ([]*models.Job, error)
}

// Service records tool invocations for history display.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("jobs store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create records a pending job with input serialized as JSON. The client
// label of the current request is attached.
func (s *Service) Create(ctx context.Context, userID id.UserID, tool string, input any) (id.JobID, error) {
	raw, err := marshalPayload(input)
	if err != nil {
		return id.JobID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode job input")
	}

	job, err := models.NewJob(userID, strings.TrimSpace(tool), raw, requestcontext.ClientLabel(ctx), requestcontext.Now(ctx))
	if err != nil {
		return id.JobID{}, err
	}
	if err := s.store.Create(ctx, job); err != nil {
		return id.JobID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create job")
	}
	return job.ID, nil
}

// UpdateStatus finishes a pending job with payload as its output.
func (s *Service) UpdateStatus(ctx context.Context, jobID id.JobID, status models.Status, payload any) error {
	return s.finish(ctx, jobID, status, payload, "")
}

// Fail marks a pending job failed, storing cause as its error payload.
func (s *Service) Fail(ctx context.Context, jobID id.JobID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(ctx, jobID, models.StatusFailed, models.ErrorPayload{Error: msg}, msg)
}

func (s *Service) finish(ctx context.Context, jobID id.JobID, status models.Status, payload any, errMsg string) error {
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeBadRequest, "job can only move to completed or failed")
	}
	raw, err := marshalPayload(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode job output")
	}

	err = s.store.UpdateStatus(ctx, jobID, status, raw, errMsg, requestcontext.Now(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "job not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "job is already finished")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update job")
	}
}

// Get returns a job owned by userID. Someone else's job is reported as not
// found so job IDs cannot be probed.
func (s *Service) Get(ctx context.Context, userID id.UserID, jobID id.JobID) (*models.Job, error) {
	job, err := s.store.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "job not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load job")
	}
	if job.UserID != userID {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "job lookup by non-owner",
				"request_id", requestcontext.RequestID(ctx),
				"job_id", jobID.String(),
			)
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "job not found")
	}
	return job, nil
}

// History lists the user's newest jobs.
func (s *Service) History(ctx context.Context, userID id.UserID, limit int) ([]*models.Job, error) {
	jobs, err := s.store.ListByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	return jobs, nil
}

// Recent lists the newest jobs across all users, for operators.
func (s *Service) Recent(ctx context.Context, limit int, statuses []models.Status) ([]*models.Job, error) {
	jobs, err := s.store.ListRecent(ctx, clampLimit(limit), statuses)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	return jobs, nil
}

func marshalPayload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(v)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultListLimit
	}
	if limit > models.MaxListLimit {
		return models.MaxListLimit
	}
	return limit
}
