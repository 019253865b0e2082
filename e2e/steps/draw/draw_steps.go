package draw

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseBody() []byte
	GetLastResponseStatus() int
}

// RegisterSteps registers gift draw step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &drawSteps{tc: tc}

	ctx.Step(`^I draw lots for "([^"]*)"$`, steps.drawFor)
	ctx.Step(`^I draw lots for "([^"]*)" with budget "([^"]*)"$`, steps.drawWithBudget)
	ctx.Step(`^I draw lots for "([^"]*)" where "([^"]*)" may not give to "([^"]*)"$`, steps.drawWithRestriction)
	ctx.Step(`^I keep drawing lots for "([^"]*)" until refused, at most (\d+) times$`, steps.drawUntilRefused)
	ctx.Step(`^every participant gives and receives exactly once$`, steps.everyoneGivesAndReceivesOnce)
	ctx.Step(`^"([^"]*)" does not give to "([^"]*)"$`, steps.doesNotGiveTo)
	ctx.Step(`^nobody draws themselves$`, steps.nobodyDrawsThemselves)
}

type drawSteps struct {
	tc           TestContext
	participants []string
}

type assignment struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
}

type restriction struct {
	Giver     string   `json:"giver"`
	Forbidden []string `json:"forbidden"`
}

func (s *drawSteps) drawFor(ctx context.Context, names string) error {
	return s.post(names, "", nil)
}

func (s *drawSteps) drawWithBudget(ctx context.Context, names, budget string) error {
	return s.post(names, budget, nil)
}

func (s *drawSteps) drawWithRestriction(ctx context.Context, names, giver, forbidden string) error {
	return s.post(names, "", []restriction{{Giver: giver, Forbidden: []string{forbidden}}})
}

func (s *drawSteps) drawUntilRefused(ctx context.Context, names string, maxDraws int) error {
	for range maxDraws {
		if err := s.post(names, "", nil); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() != 200 {
			return nil
		}
	}
	return fmt.Errorf("still drawing after %d attempts", maxDraws)
}

func (s *drawSteps) post(names, budget string, restrictions []restriction) error {
	s.participants = splitNames(names)
	body := map[string]any{"participants": s.participants}
	if budget != "" {
		body["budget"] = budget
	}
	if len(restrictions) > 0 {
		body["restrictions"] = restrictions
	}
	return s.tc.POST("/v1/tools/lootjes", body)
}

func (s *drawSteps) assignments() ([]assignment, error) {
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return nil, fmt.Errorf("draw failed with status %d: %s", status, s.tc.GetLastResponseBody())
	}
	var resp struct {
		Assignments []assignment `json:"assignments"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return nil, fmt.Errorf("decode draw: %w", err)
	}
	return resp.Assignments, nil
}

func (s *drawSteps) everyoneGivesAndReceivesOnce(ctx context.Context) error {
	assignments, err := s.assignments()
	if err != nil {
		return err
	}
	if len(assignments) != len(s.participants) {
		return fmt.Errorf("expected %d assignments, got %d", len(s.participants), len(assignments))
	}
	gives := map[string]int{}
	receives := map[string]int{}
	for _, a := range assignments {
		gives[a.Giver]++
		receives[a.Receiver]++
	}
	for _, name := range s.participants {
		if gives[name] != 1 || receives[name] != 1 {
			return fmt.Errorf("%s gives %d and receives %d times", name, gives[name], receives[name])
		}
	}
	return nil
}

func (s *drawSteps) doesNotGiveTo(ctx context.Context, giver, receiver string) error {
	assignments, err := s.assignments()
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.Giver == giver && a.Receiver == receiver {
			return fmt.Errorf("%s was assigned %s", giver, receiver)
		}
	}
	return nil
}

func (s *drawSteps) nobodyDrawsThemselves(ctx context.Context) error {
	assignments, err := s.assignments()
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.Giver == a.Receiver {
			return fmt.Errorf("%s drew themselves", a.Giver)
		}
	}
	return nil
}

func splitNames(names string) []string {
	var out []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
