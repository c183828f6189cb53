package journey

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context journey steps need.
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetSessionID() string
	SetSessionID(sessionID string)
	SessionHeaders() map[string]string
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &journeySteps{tc: tc}

	ctx.Step(`^a session is initialised for user "([^"]*)" with vtr "([^"]*)"$`, steps.initialiseSession)
	ctx.Step(`^I initialise a session with vtr "([^"]*)"$`, steps.initialiseOnly)
	ctx.Step(`^I send the journey event "([^"]*)"$`, steps.sendEvent)
	ctx.Step(`^I send the journey event "([^"]*)" from page "([^"]*)"$`, steps.sendEventFromPage)
	ctx.Step(`^I send the journey event "([^"]*)" without a session$`, steps.sendEventWithoutSession)
	ctx.Step(`^I request an OAuth redirect for "([^"]*)"$`, steps.requestOAuthRedirect)
	ctx.Step(`^I return from "([^"]*)" with state "([^"]*)"$`, steps.returnFromCri)
	ctx.Step(`^the next page should be "([^"]*)"$`, steps.nextPageShouldBe)
	ctx.Step(`^the redirect should point at "([^"]*)"$`, steps.redirectShouldPointAt)
}

type journeySteps struct {
	tc TestContext
}

func initialiseBody(userID, vtr string) map[string]any {
	return map[string]any{
		"clientId":             "e2e-orchestrator",
		"redirectUri":          "https://orchestrator.e2e/callback",
		"state":                "e2e-client-state",
		"userId":               userID,
		"govukSigninJourneyId": "e2e-journey",
		"vtr":                  strings.Split(vtr, ","),
	}
}

func (s *journeySteps) initialiseSession(ctx context.Context, userID, vtr string) error {
	if err := s.tc.POST("/session/initialise", initialiseBody(userID, vtr), nil); err != nil {
		return err
	}
	sessionID, err := s.tc.GetResponseField("ipvSessionId")
	if err != nil {
		return err
	}
	s.tc.SetSessionID(fmt.Sprint(sessionID))
	return nil
}

func (s *journeySteps) initialiseOnly(_ context.Context, vtr string) error {
	return s.tc.POST("/session/initialise", initialiseBody("urn:uuid:e2e-user", vtr), nil)
}

func (s *journeySteps) sendEvent(_ context.Context, event string) error {
	return s.tc.POST("/journey/"+url.PathEscape(event), nil, s.tc.SessionHeaders())
}

func (s *journeySteps) sendEventFromPage(_ context.Context, event, page string) error {
	return s.tc.POST("/journey/"+url.PathEscape(event)+"?currentPage="+url.QueryEscape(page), nil, s.tc.SessionHeaders())
}

func (s *journeySteps) sendEventWithoutSession(_ context.Context, event string) error {
	return s.tc.POST("/journey/"+url.PathEscape(event), nil, nil)
}

func (s *journeySteps) requestOAuthRedirect(_ context.Context, criID string) error {
	return s.tc.POST("/cri/"+url.PathEscape(criID)+"/oauth-request", nil, s.tc.SessionHeaders())
}

func (s *journeySteps) returnFromCri(_ context.Context, criID, state string) error {
	return s.tc.POST("/cri/callback", map[string]any{
		"credentialIssuerId": criID,
		"authorizationCode":  "e2e-code",
		"state":              state,
		"ipvSessionId":       s.tc.GetSessionID(),
	}, nil)
}

func (s *journeySteps) nextPageShouldBe(_ context.Context, want string) error {
	page, err := s.tc.GetResponseField("page")
	if err != nil {
		return err
	}
	if page != want {
		return fmt.Errorf("expected page %q, got %q", want, page)
	}
	return nil
}

func (s *journeySteps) redirectShouldPointAt(_ context.Context, prefix string) error {
	cri, err := s.tc.GetResponseField("cri")
	if err != nil {
		return err
	}
	fields, ok := cri.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected cri field %v", cri)
	}
	redirect := fmt.Sprint(fields["redirectUrl"])
	if !strings.HasPrefix(redirect, prefix) {
		return fmt.Errorf("expected redirect under %q, got %q", prefix, redirect)
	}
	return nil
}
