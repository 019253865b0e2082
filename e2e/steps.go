package e2e

import (
	"github.com/cucumber/godog"

	"toolbox/e2e/steps/auth"
	"toolbox/e2e/steps/common"
	"toolbox/e2e/steps/draw"
	"toolbox/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	draw.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
