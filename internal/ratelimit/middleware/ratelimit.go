// Package middleware enforces per-user request limits on the API.
//
// When a fallback store is configured, a circuit breaker tracks primary
// store errors. While it is open requests are counted in the fallback and
// responses carry X-RateLimit-Status: degraded. Without a fallback, store
// errors fail open.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"toolbox/internal/ratelimit/models"
	"toolbox/pkg/platform/circuit"
	"toolbox/pkg/platform/httputil"
	"toolbox/pkg/requestcontext"
)

type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Recorder counts rejected requests. Implemented by the platform metrics.
type Recorder interface {
	IncrementRateLimited(scope string)
}

type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limit    models.Limit
	logger   *slog.Logger
	recorder Recorder
	disabled bool
}

type Option func(*Middleware)

// WithFallback counts requests in fallback while breaker is open.
func WithFallback(fallback Store, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Middleware) { m.recorder = r }
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(primary Store, limit models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limit:   limit,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.fallback != nil && m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if m.disabled {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimitUser limits requests per authenticated user, falling back to
// the client IP when no user is on the context.
func (m *Middleware) RateLimitUser(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := models.IPKey(requestcontext.ClientIP(ctx), scope)
			if userID := requestcontext.UserID(ctx); !userID.IsNil() {
				key = models.UserKey(userID.String(), scope)
			}

			result, degraded, err := m.check(ctx, key)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"scope", scope,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				if m.recorder != nil {
					m.recorder.IncrementRateLimited(scope)
				}
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, key string) (*models.RateLimitResult, bool, error) {
	result, err := m.primary.Allow(ctx, key, m.limit.Requests, m.limit.Window)
	if m.fallback == nil {
		return result, false, err
	}

	if err != nil {
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "rate limit store unavailable, using fallback",
				"breaker", m.breaker.Name(),
				"error", err,
			)
		}
		return m.fromFallback(ctx, key)
	}

	usePrimary, change := m.breaker.RecordSuccess()
	if change.Closed {
		m.logger.InfoContext(ctx, "rate limit store recovered", "breaker", m.breaker.Name())
	}
	if !usePrimary {
		return m.fromFallback(ctx, key)
	}
	return result, false, nil
}

func (m *Middleware) fromFallback(ctx context.Context, key string) (*models.RateLimitResult, bool, error) {
	result, err := m.fallback.Allow(ctx, key, m.limit.Requests, m.limit.Window)
	return result, true, err
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "You have exceeded your request quota. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
