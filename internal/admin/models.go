package admin

import (
	"toolbox/pkg/platform/audit"
)

// ActorAdmin identifies admin-console actions in the audit trail.
const ActorAdmin = "admin_console"

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type AuditListResponse struct {
	Events []audit.Event `json:"events"`
}
