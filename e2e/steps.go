package e2e

import (
	"github.com/cucumber/godog"

	"ipvcore/e2e/steps/common"
	"ipvcore/e2e/steps/journey"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	journey.RegisterSteps(ctx, tc)
}
