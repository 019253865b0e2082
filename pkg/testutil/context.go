package testutil

import (
	"context"
	"net/http"
	"time"

	id "toolbox/pkg/domain"
	"toolbox/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithAuth adds the user ID and the presented token's jti and expiry, the
// state RequireAuth leaves behind. An invalid userID is silently ignored.
func WithAuth(req *http.Request, userID, jti string, expiresAt time.Time) *http.Request {
	req = WithUserID(req, userID)
	return req.WithContext(requestcontext.WithToken(req.Context(), jti, expiresAt))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
