package directory

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is what the directory steps need from the scenario context.
type TestContext interface {
	AppPath(suffix string) string
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	DELETE(path string) error
	GetLastStatusCode() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers external ID directory steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &directorySteps{tc: tc}

	ctx.Step(`^external ID "([^"]*)" exists in study "([^"]*)"$`, steps.externalIDExistsInStudy)
	ctx.Step(`^external IDs "([^"]*)" through "([^"]*)" exist in study "([^"]*)"$`, steps.externalIDRangeExists)
	ctx.Step(`^account "([^"]*)" commits external ID "([^"]*)"$`, steps.commit)
	ctx.Step(`^account "([^"]*)" releases external ID "([^"]*)"$`, steps.release)
	ctx.Step(`^I get external ID "([^"]*)" as a caller in studies "([^"]*)"$`, steps.getAsCaller)
	ctx.Step(`^I page through the directory (\d+) at a time with filter "([^"]*)"$`, steps.pageThrough)
	ctx.Step(`^I should have seen (\d+) external IDs in ascending order$`, steps.shouldHaveSeen)

	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		steps.seen = nil
		return ctx, nil
	})
}

type directorySteps struct {
	tc   TestContext
	seen []string
}

func (s *directorySteps) externalIDExistsInStudy(_ context.Context, identifier, study string) error {
	if err := s.tc.POST(s.tc.AppPath(""), map[string]string{"identifier": identifier, "studyId": study}); err != nil {
		return err
	}
	return s.expectStatus(201)
}

func (s *directorySteps) externalIDRangeExists(ctx context.Context, first, last, study string) error {
	prefix, from, to, err := parseRange(first, last)
	if err != nil {
		return err
	}
	for i := from; i <= to; i++ {
		if err := s.externalIDExistsInStudy(ctx, fmt.Sprintf("%s%03d", prefix, i), study); err != nil {
			return err
		}
	}
	return nil
}

func (s *directorySteps) commit(_ context.Context, healthCode, identifier string) error {
	return s.tc.POST(s.tc.AppPath("/"+url.PathEscape(identifier)+"/assignment"), map[string]string{"healthCode": healthCode})
}

func (s *directorySteps) release(_ context.Context, healthCode, identifier string) error {
	return s.tc.DELETE(s.tc.AppPath("/" + url.PathEscape(identifier) + "/assignment?healthCode=" + url.QueryEscape(healthCode)))
}

func (s *directorySteps) getAsCaller(_ context.Context, identifier, studies string) error {
	return s.tc.GET(s.tc.AppPath("/"+url.PathEscape(identifier)), map[string]string{"X-Caller-Studies": studies})
}

func (s *directorySteps) pageThrough(_ context.Context, pageSize int, filter string) error {
	s.seen = nil
	offsetKey := ""
	for pages := 0; pages < 1000; pages++ {
		query := url.Values{"pageSize": {fmt.Sprint(pageSize)}}
		if filter != "" {
			query.Set("idFilter", filter)
		}
		if offsetKey != "" {
			query.Set("offsetKey", offsetKey)
		}
		if err := s.tc.GET(s.tc.AppPath("?"+query.Encode()), nil); err != nil {
			return err
		}
		if err := s.expectStatus(200); err != nil {
			return err
		}

		items, err := s.tc.GetResponseField("items")
		if err != nil {
			return err
		}
		list, _ := items.([]any)
		for _, item := range list {
			entry, _ := item.(map[string]any)
			s.seen = append(s.seen, fmt.Sprint(entry["identifier"]))
		}

		next, err := s.tc.GetResponseField("nextPageOffsetKey")
		if err != nil {
			return nil
		}
		offsetKey = fmt.Sprint(next)
	}
	return fmt.Errorf("cursor chain did not terminate")
}

func (s *directorySteps) shouldHaveSeen(_ context.Context, count int) error {
	if len(s.seen) != count {
		return fmt.Errorf("expected %d external IDs, saw %d", count, len(s.seen))
	}
	for i := 1; i < len(s.seen); i++ {
		if s.seen[i-1] >= s.seen[i] {
			return fmt.Errorf("out of order: %q before %q", s.seen[i-1], s.seen[i])
		}
	}
	return nil
}

func (s *directorySteps) expectStatus(expected int) error {
	if got := s.tc.GetLastStatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

// parseRange splits "p-001" / "p-120" into the shared prefix and bounds.
func parseRange(first, last string) (prefix string, from, to int, err error) {
	i := strings.LastIndexAny(first, "-_")
	if i < 0 || first[:i+1] != last[:min(len(last), i+1)] {
		return "", 0, 0, fmt.Errorf("range %q..%q must share a prefix ending in - or _", first, last)
	}
	prefix = first[:i+1]
	if _, err := fmt.Sscanf(first[i+1:], "%d", &from); err != nil {
		return "", 0, 0, fmt.Errorf("parse %q: %w", first, err)
	}
	if _, err := fmt.Sscanf(last[i+1:], "%d", &to); err != nil {
		return "", 0, 0, fmt.Errorf("parse %q: %w", last, err)
	}
	return prefix, from, to, nil
}
