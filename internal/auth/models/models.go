package models

import (
	"time"

	id "toolbox/pkg/domain"
)

// MaxTokenTTL bounds admin-issued access tokens.
const MaxTokenTTL = 30 * 24 * time.Hour

const TokenTypeBearer = "Bearer"

// IssueTokenRequest is the admin request for a development access token.
// TTLSeconds of zero selects the configured default.
type IssueTokenRequest struct {
	UserID     id.UserID `json:"user_id"`
	TTLSeconds int       `json:"ttl_seconds,omitempty"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type LogoutResponse struct {
	Revoked bool `json:"revoked"`
}
