package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "toolbox/pkg/domain"
	"toolbox/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (r stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return r.revoked[jti], r.err
}

func newAuthedHandler(v JWTValidator, rc TokenRevocationChecker, seen *id.UserID) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return RequireAuth(v, rc, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = requestcontext.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	validClaims := &JWTClaims{UserID: userID.String(), JTI: "jti-1", ExpiresAt: time.Now().Add(time.Hour), APIVersion: "v1"}

	t.Run("missing header is unauthorized", func(t *testing.T) {
		var seen id.UserID
		rec := doRequest(newAuthedHandler(stubValidator{claims: validClaims}, nil, &seen), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		var seen id.UserID
		rec := doRequest(newAuthedHandler(stubValidator{err: errors.New("bad")}, nil, &seen), "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-uuid subject is unauthorized", func(t *testing.T) {
		var seen id.UserID
		rec := doRequest(newAuthedHandler(stubValidator{claims: &JWTClaims{UserID: "nope", JTI: "j"}}, nil, &seen), "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token is unauthorized", func(t *testing.T) {
		var seen id.UserID
		rc := stubRevocations{revoked: map[string]bool{"jti-1": true}}
		rec := doRequest(newAuthedHandler(stubValidator{claims: validClaims}, rc, &seen), "Bearer x")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "revoked")
	})

	t.Run("revocation backend failure is internal error", func(t *testing.T) {
		var seen id.UserID
		rc := stubRevocations{err: errors.New("redis down")}
		rec := doRequest(newAuthedHandler(stubValidator{claims: validClaims}, rc, &seen), "Bearer x")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("valid token stores user in context", func(t *testing.T) {
		var seen id.UserID
		rc := stubRevocations{revoked: map[string]bool{}}
		rec := doRequest(newAuthedHandler(stubValidator{claims: validClaims}, rc, &seen), "Bearer x")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id.UserID(userID), seen)
	})
}
