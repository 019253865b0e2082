package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"toolbox/internal/jobs/models"
	id "toolbox/pkg/domain"
)

type InMemoryJobStore struct {
	mu     sync.RWMutex
	jobs   map[id.JobID]*models.Job
	byUser map[id.UserID][]id.JobID
	order  []id.JobID
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs:   make(map[id.JobID]*models.Job),
		byUser: make(map[id.UserID][]id.JobID),
	}
}

func (s *InMemoryJobStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrConflict
	}
	s.jobs[job.ID] = cloneJob(job)
	s.byUser[job.UserID] = append(s.byUser[job.UserID], job.ID)
	s.order = append(s.order, job.ID)
	return nil
}

// UpdateStatus moves a pending job to a terminal status. Any other
// transition fails with ErrInvalidState.
func (s *InMemoryJobStore) UpdateStatus(_ context.Context, jobID id.JobID, status models.Status, output json.RawMessage, errMsg string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if !job.Status.CanTransitionTo(status) {
		return ErrInvalidState
	}
	job.Status = status
	job.Output = slices.Clone(output)
	job.Error = errMsg
	job.UpdatedAt = now
	return nil
}

func (s *InMemoryJobStore) FindByID(_ context.Context, jobID id.JobID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

// ListByUser returns the user's newest jobs first.
func (s *InMemoryJobStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID], limit, nil), nil
}

// ListRecent returns the newest jobs across users, optionally restricted to statuses.
func (s *InMemoryJobStore) ListRecent(_ context.Context, limit int, statuses []models.Status) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, limit, statuses), nil
}

func (s *InMemoryJobStore) collect(ids []id.JobID, limit int, statuses []models.Status) []*models.Job {
	out := make([]*models.Job, 0, min(len(ids), max(limit, 0)))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		job := s.jobs[ids[i]]
		if len(statuses) > 0 && !slices.Contains(statuses, job.Status) {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	cp.Input = slices.Clone(j.Input)
	cp.Output = slices.Clone(j.Output)
	return &cp
}
