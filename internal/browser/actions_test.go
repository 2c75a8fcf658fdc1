package browser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReturnsLocation(t *testing.T) {
	page := newFakePage()
	page.title = "Register a death - GOV.UK"
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.Open(context.Background(), "https://www.gov.uk/register-a-death", 0)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "https://www.gov.uk/register-a-death", res.String("url"))
	assert.Equal(t, "Register a death - GOV.UK", res.String("title"))
}

func TestOpenNavigationErrorIsCaptured(t *testing.T) {
	page := newFakePage()
	page.gotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.Open(context.Background(), "https://nowhere.invalid", time.Second)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "ERR_NAME_NOT_RESOLVED")
}

func TestActionsPropagateResourceFailure(t *testing.T) {
	actions, _ := newTestActions(t, &fakeLauncher{err: errors.New("no chromium")})

	_, err := actions.ReadLocation(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestClickFirstOfRoleCandidateWinsBeforeSelectors(t *testing.T) {
	page := newFakePage()
	page.elements = []fakeElement{{role: "button", name: "Find your local register office"}}
	page.selectors["button.find-office"] = true
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.ClickFirstOf(context.Background(), []entity.ClickCandidate{
		{Kind: entity.CandidateRole, Role: "button", Value: "find.*office"},
		{Kind: entity.CandidateSelector, Value: "button.find-office"},
		{Kind: entity.CandidateSelector, Value: "#find"},
	}, 5*time.Second)
	require.NoError(t, err)

	require.True(t, res.OK, res.Error)
	assert.Equal(t, "role", res.Payload["mechanism"])
	assert.Equal(t, 0, res.Payload["index"])
	assert.Equal(t, []string{"role=button name~/find.*office/i"}, res.Payload["attempted"])

	for _, call := range page.Calls() {
		assert.NotContains(t, call, "selector:", "no selector candidate may be attempted after the role match")
	}
}

func TestClickFirstOfFallsThroughInOrder(t *testing.T) {
	page := newFakePage()
	page.elements = []fakeElement{{text: "Continue"}}
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.ClickFirstOf(context.Background(), []entity.ClickCandidate{
		{Kind: entity.CandidateRole, Value: "start now"},
		{Kind: entity.CandidateText, Value: "continue"},
	}, time.Second)
	require.NoError(t, err)

	require.True(t, res.OK)
	assert.Equal(t, "text", res.Payload["mechanism"])
	assert.Equal(t, []string{"role=button name~/start now/i", "text=continue"}, res.Payload["attempted"])
}

func TestClickFirstOfReportsEveryAttempt(t *testing.T) {
	page := newFakePage()
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.ClickFirstOf(context.Background(), []entity.ClickCandidate{
		{Kind: entity.CandidateText, Value: "Accept all cookies"},
		{Kind: entity.CandidateSelector, Value: "#accept"},
	}, time.Second)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "no candidate succeeded")
	assert.Equal(t, []string{"text=Accept all cookies", "#accept"}, res.Payload["attempted"])
}

func TestClickByRoleInvalidPattern(t *testing.T) {
	actions, _ := newTestActions(t, &fakeLauncher{page: newFakePage()})

	res, err := actions.ClickByRole(context.Background(), "button", "find(", time.Second)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "invalid name pattern")
}

func TestClickBySelectorTimeoutFlagged(t *testing.T) {
	actions, _ := newTestActions(t, &fakeLauncher{page: newFakePage()})

	res, err := actions.ClickBySelector(context.Background(), "#missing", time.Second)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.True(t, res.Bool("timeout"))
}

func TestFillReportsLengthOnly(t *testing.T) {
	page := newFakePage()
	page.selectors["#postcode"] = true
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.Fill(context.Background(), "#postcode", "EC1A 1BB", time.Second)
	require.NoError(t, err)

	require.True(t, res.OK)
	assert.Equal(t, 8, res.Payload["value_len"])

	for _, v := range res.Payload {
		assert.NotEqual(t, "EC1A 1BB", v)
	}
}

func TestDetectFormPresenceNeverFails(t *testing.T) {
	page := newFakePage()
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.DetectFormPresence(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Bool("has_fields"))

	page.selectors[formFieldsSelector] = true

	res, err = actions.DetectFormPresence(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Bool("has_fields"))
}

func TestWaitForStateUnknown(t *testing.T) {
	actions, _ := newTestActions(t, &fakeLauncher{page: newFakePage()})

	res, err := actions.WaitForState(context.Background(), "#x", ports.WaitState("glowing"), time.Second)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unknown wait state")
}

func TestScrollRepeats(t *testing.T) {
	page := newFakePage()
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.Scroll(context.Background(), 800, 3, time.Millisecond)
	require.NoError(t, err)

	require.True(t, res.OK)
	assert.Equal(t, 3, res.Payload["scrolls"])
	assert.Equal(t, []string{"evaluate:[800]", "evaluate:[800]", "evaluate:[800]"}, page.Calls())
}

func TestScreenshotResolvesUnderDirectory(t *testing.T) {
	page := newFakePage()
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.Screenshot(context.Background(), "shots/registrar.png", true)
	require.NoError(t, err)

	require.True(t, res.OK)
	path := res.String("path")
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(actions.config.BrowserConfig.ScreenshotDir, "shots", "registrar.png"), path)
	assert.Equal(t, []string{path}, page.shots)
}

func TestEnumerateLinksNeverReturnsBlocked(t *testing.T) {
	page := newFakePage()
	page.anchors = []any{
		map[string]any{"text": "Camden register office", "href": "https://www.camden.gov.uk/register-office", "visible": true},
		map[string]any{"text": "City of London registrar", "href": "https://www.cityoflondon.gov.uk/registrar", "visible": true},
		map[string]any{"text": "Advert", "href": "https://ads.example.com", "visible": true},
	}
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	res, err := actions.EnumerateLinks(context.Background(), 10, entity.LinkFilter{
		Allow: []string{".gov.uk"},
		Block: []string{"cityoflondon.gov.uk"},
	})
	require.NoError(t, err)

	require.True(t, res.OK)
	links, ok := res.Payload["links"].([]entity.Link)
	require.True(t, ok)
	require.Len(t, links, 1)
	assert.Equal(t, "www.camden.gov.uk", links[0].Host)
	assert.Equal(t, 3, res.Payload["seen"])
}

func TestInspectReturnsText(t *testing.T) {
	page := newFakePage()
	page.url = "https://www.camden.gov.uk/register-a-death"
	page.title = "Register a death"
	page.content = "<html><body><h1>Book an appointment</h1></body></html>"
	actions, _ := newTestActions(t, &fakeLauncher{page: page})

	loc, text, err := actions.Inspect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.Location{URL: page.url, Title: "Register a death"}, loc)
	assert.Equal(t, "Book an appointment", text)
}
