package audit

import (
	"context"
	"time"

	id "toolbox/pkg/domain"
)

// EventCategory classifies audit events for routing and retention.
type EventCategory string

const (
	// CategoryBilling covers credit movements; they back billing disputes.
	CategoryBilling EventCategory = "billing"

	// CategorySecurity covers authentication and admin activity.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine tool usage.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    id.UserID     `json:"user_id"`
	Subject   string        `json:"subject,omitempty"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// ActorID is set when someone other than UserID performed the action,
	// e.g. an admin granting credits.
	ActorID string `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	EventDrawGenerated  AuditEvent = "draw_generated"
	EventDrawRejected   AuditEvent = "draw_rejected"
	EventCreditsDebited AuditEvent = "credits_debited"
	EventCreditsGranted AuditEvent = "credits_granted"
	EventTokenIssued    AuditEvent = "token_issued"
	EventTokenRevoked   AuditEvent = "token_revoked"
	EventAuthFailed     AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCreditsDebited: CategoryBilling,
	EventCreditsGranted: CategoryBilling,

	EventTokenIssued:  CategorySecurity,
	EventTokenRevoked: CategorySecurity,
	EventAuthFailed:   CategorySecurity,

	EventDrawGenerated: CategoryOperations,
	EventDrawRejected:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists events and lists them back for a user.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Sink receives a copy of every stored event (e.g. a Kafka topic).
type Sink interface {
	Append(ctx context.Context, event Event) error
}
