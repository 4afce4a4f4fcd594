package e2e

import (
	"github.com/cucumber/godog"

	"extid/e2e/steps/common"
	"extid/e2e/steps/directory"
)

// RegisterSteps registers all step definitions from the step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	directory.RegisterSteps(ctx, tc)
}
