package models

import (
	"encoding/json"
	"time"

	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo allows only pending -> completed|failed.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// ParseStatus validates a status from user input.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid job status: "+raw)
	}
	return s, nil
}

// Job is one tool invocation kept for history. Input and Output are the
// serialized request and result snapshots.
type Job struct {
	ID          id.JobID        `json:"id"`
	UserID      id.UserID       `json:"user_id"`
	Tool        string          `json:"tool"`
	Status      Status          `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	ClientLabel string          `json:"client_label,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewJob builds a pending job.
func NewJob(userID id.UserID, tool string, input json.RawMessage, clientLabel string, now time.Time) (*Job, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job requires a user")
	}
	if tool == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job requires a tool")
	}
	return &Job{
		ID:          id.NewJobID(),
		UserID:      userID,
		Tool:        tool,
		Status:      StatusPending,
		Input:       input,
		ClientLabel: clientLabel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type ListResponse struct {
	Jobs []*Job `json:"jobs"`
}

// ErrorPayload is stored as Output of failed jobs.
type ErrorPayload struct {
	Error string `json:"error"`
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)
