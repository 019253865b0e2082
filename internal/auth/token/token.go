// Package token issues and validates HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "toolbox/pkg/domain"
	dErrors "toolbox/pkg/domain-errors"
	authmw "toolbox/pkg/platform/middleware/auth"
)

// Claims are the access token claims.
type Claims struct {
	UserID     string `json:"user_id"`
	APIVersion string `json:"api_version,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies access tokens with a shared key.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the issuing clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(signingKey, issuer, audience string, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	svc := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GenerateAccessToken signs a token for userID valid for ttl. A non-positive
// ttl yields an already expired token.
func (s *Service) GenerateAccessToken(userID id.UserID, ttl time.Duration) (string, time.Time, error) {
	if userID.IsNil() {
		return "", time.Time{}, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:     userID.String(),
		APIVersion: id.DefaultVersion().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return signed, expiresAt.Truncate(time.Second), nil
}

// Parse verifies signature, expiry, issuer and audience.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken satisfies the auth middleware's validator.
func (s *Service) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	out := &authmw.JWTClaims{
		UserID:     claims.UserID,
		JTI:        claims.ID,
		APIVersion: claims.APIVersion,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
