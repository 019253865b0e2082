// Package models holds the rate limiting value types shared by stores and
// middleware.
package models

import "time"

// Limit is a sliding-window allowance: Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the body of a 429 response.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// UserKey buckets requests per authenticated user and scope.
func UserKey(userID, scope string) string {
	return "rl:user:" + userID + ":" + scope
}

// IPKey buckets anonymous requests per client IP and scope.
func IPKey(ip, scope string) string {
	return "rl:ip:" + ip + ":" + scope
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, at least 1.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	return max(secs, 1)
}
