package models

import (
	"toolbox/internal/draw"
	id "toolbox/pkg/domain"
)

// ToolLootjes is the job tool name of the gift draw.
const ToolLootjes = "lootjes"

const (
	MaxBudgetLength = 64
	MaxParticipants = 200
	MaxNameLength   = 100
	MaxRestrictions = 200
	// MaxForbidden caps the forbidden list of a single restriction.
	MaxForbidden = 200
)

// DrawRequest is the client payload. MaxAttempts of zero uses the server
// default; larger values are capped by it.
type DrawRequest struct {
	Participants []string           `json:"participants"`
	Restrictions []draw.Restriction `json:"restrictions,omitempty"`
	Budget       string             `json:"budget,omitempty"`
	MaxAttempts  int                `json:"max_attempts,omitempty"`
}

// JobInput is the snapshot stored with the job.
type JobInput struct {
	Participants []string           `json:"participants"`
	Restrictions []draw.Restriction `json:"restrictions"`
	Budget       string             `json:"budget,omitempty"`
}

type DrawResponse struct {
	JobID                      id.JobID          `json:"job_id"`
	Assignments                []draw.Assignment `json:"assignments"`
	FullyRestrictionsSatisfied bool              `json:"fully_restrictions_satisfied"`
	Attempts                   int               `json:"attempts"`
	CreditsRemaining           int               `json:"credits_remaining"`
	Budget                     string            `json:"budget,omitempty"`
}
