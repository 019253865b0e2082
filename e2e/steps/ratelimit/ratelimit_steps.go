package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AuthGET(path string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(key string) string
}

// RegisterSteps registers per-user rate limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)" until I am rate limited, at most (\d+) times$`, steps.getUntilLimited)
	ctx.Step(`^the response should carry a Retry-After header$`, steps.shouldCarryRetryAfter)
	ctx.Step(`^the response should carry rate limit headers$`, steps.shouldCarryRateLimitHeaders)
}

type ratelimitSteps struct {
	tc TestContext
}

func (s *ratelimitSteps) getUntilLimited(ctx context.Context, path string, maxRequests int) error {
	for range maxRequests {
		if err := s.tc.AuthGET(path); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			return nil
		}
	}
	return fmt.Errorf("not rate limited after %d requests", maxRequests)
}

func (s *ratelimitSteps) shouldCarryRetryAfter(ctx context.Context) error {
	raw := s.tc.GetLastResponseHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		return fmt.Errorf("expected a positive Retry-After, got %q", raw)
	}
	return nil
}

func (s *ratelimitSteps) shouldCarryRateLimitHeaders(ctx context.Context) error {
	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if s.tc.GetLastResponseHeader(h) == "" {
			return fmt.Errorf("missing header %s", h)
		}
	}
	return nil
}
