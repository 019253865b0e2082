package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/gofrs/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	AdminPOST(path string, body any) error
	AuthGET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetAccessToken() string
	SetAccessToken(token string)
	SetUserID(userID string)
	GetUserID() string
}

// RegisterSteps registers token issuance and logout step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I have an access token for a new user$`, steps.haveTokenForNewUser)
	ctx.Step(`^the operator grants me (\d+) credits$`, steps.operatorGrantsCredits)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I GET "([^"]*)" with my token$`, steps.getWithToken)
	ctx.Step(`^I GET "([^"]*)" without a token$`, steps.getWithoutToken)
	ctx.Step(`^I GET "([^"]*)" with invalid token "([^"]*)"$`, steps.getWithInvalidToken)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) haveTokenForNewUser(_ context.Context) error {
	u, err := uuid.NewV4()
	if err != nil {
		return err
	}
	userID := u.String()
	if err := s.tc.AdminPOST("/admin/tokens", map[string]any{"user_id": userID}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("issuing token: expected 201, got %d", status)
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(token.(string))
	s.tc.SetUserID(userID)
	return nil
}

func (s *authSteps) operatorGrantsCredits(_ context.Context, amount int) error {
	return s.tc.AdminPOST("/admin/credits/grant", map[string]any{
		"user_id": s.tc.GetUserID(),
		"amount":  amount,
		"reason":  "e2e top-up",
	})
}

func (s *authSteps) logout(_ context.Context) error {
	return s.tc.POST("/v1/auth/logout", nil)
}

func (s *authSteps) getWithToken(_ context.Context, path string) error {
	return s.tc.AuthGET(path)
}

func (s *authSteps) getWithoutToken(_ context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *authSteps) getWithInvalidToken(_ context.Context, path, token string) error {
	return s.tc.GET(path, map[string]string{
		"Authorization": "Bearer " + token,
	})
}
