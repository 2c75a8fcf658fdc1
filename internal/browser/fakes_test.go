package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap/zaptest"
)

type fakeElement struct {
	role string
	name string
	text string
}

// fakePage is a scripted page: elements are matched by selector, role/name or text.
type fakePage struct {
	playwright.Page

	mu        sync.Mutex
	url       string
	title     string
	closed    bool
	content   string
	gotoErr   error
	selectors map[string]bool
	elements  []fakeElement
	anchors   []any
	calls     []string
	shots     []string
}

func newFakePage() *fakePage {
	return &fakePage{
		url:       "about:blank",
		selectors: make(map[string]bool),
	}
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, call)
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.calls...)
}

func (p *fakePage) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.record("goto:" + url)

	if p.gotoErr != nil {
		return nil, p.gotoErr
	}

	p.url = url

	return nil, nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Title() (string, error) { return p.title, nil }

func (p *fakePage) IsClosed() bool { return p.closed }

func (p *fakePage) Content() (string, error) { return p.content, nil }

func (p *fakePage) Evaluate(_ string, arg ...any) (any, error) {
	p.record(fmt.Sprintf("evaluate:%v", arg))

	return 0, nil
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	if len(options) > 0 && options[0].Path != nil {
		p.shots = append(p.shots, *options[0].Path)
	}

	return []byte{}, nil
}

func (p *fakePage) Locator(selector string, _ ...playwright.PageLocatorOptions) playwright.Locator {
	return &fakeLocator{page: p, key: "selector:" + selector, present: p.selectors[selector]}
}

func (p *fakePage) GetByRole(role playwright.AriaRole, options ...playwright.PageGetByRoleOptions) playwright.Locator {
	var name *regexp.Regexp
	if len(options) > 0 {
		name, _ = options[0].Name.(*regexp.Regexp)
	}

	present := false

	for _, el := range p.elements {
		if el.role == string(role) && name != nil && name.MatchString(el.name) {
			present = true

			break
		}
	}

	pattern := ""
	if name != nil {
		pattern = name.String()
	}

	return &fakeLocator{page: p, key: "role:" + string(role) + ":" + pattern, present: present}
}

func (p *fakePage) GetByText(text any, options ...playwright.PageGetByTextOptions) playwright.Locator {
	needle, _ := text.(string)
	exact := len(options) > 0 && options[0].Exact != nil && *options[0].Exact
	present := false

	for _, el := range p.elements {
		if exact && el.text == needle || !exact && strings.Contains(strings.ToLower(el.text), strings.ToLower(needle)) {
			present = true

			break
		}
	}

	return &fakeLocator{page: p, key: "text:" + needle, present: present}
}

// locatorIface keeps the embedded field from shadowing Locator.Locator.
type locatorIface = playwright.Locator

var (
	_ playwright.Page    = (*fakePage)(nil)
	_ playwright.Locator = (*fakeLocator)(nil)
)

type fakeLocator struct {
	locatorIface

	page    *fakePage
	key     string
	present bool
}

func (l *fakeLocator) First() playwright.Locator { return l }

func (l *fakeLocator) missing() error {
	return fmt.Errorf("%w: waiting for %s", playwright.ErrTimeout, l.key)
}

func (l *fakeLocator) WaitFor(_ ...playwright.LocatorWaitForOptions) error {
	l.page.record("wait:" + l.key)

	if !l.present {
		return l.missing()
	}

	return nil
}

func (l *fakeLocator) Click(_ ...playwright.LocatorClickOptions) error {
	l.page.record("click:" + l.key)

	if !l.present {
		return l.missing()
	}

	return nil
}

func (l *fakeLocator) Fill(value string, _ ...playwright.LocatorFillOptions) error {
	l.page.record("fill:" + l.key)

	if !l.present {
		return l.missing()
	}

	return nil
}

func (l *fakeLocator) EvaluateAll(_ string, _ ...any) (any, error) {
	return l.page.anchors, nil
}

type fakeRuntime struct {
	id      string
	page    *fakePage
	pages   atomic.Int32
	closed  atomic.Bool
	crashed atomic.Bool
	noPages atomic.Bool
}

func (r *fakeRuntime) ID() string { return r.id }

func (r *fakeRuntime) Connected() bool { return !r.crashed.Load() }

func (r *fakeRuntime) NewPage() (playwright.Page, error) {
	if r.crashed.Load() || r.noPages.Load() {
		return nil, errors.New("target closed: browser has disconnected")
	}

	r.pages.Add(1)
	r.page.closed = false

	return r.page, nil
}

func (r *fakeRuntime) Close() error {
	r.closed.Store(true)

	return nil
}

type fakeLauncher struct {
	page     *fakePage
	err      error
	launches atomic.Int32
	last     atomic.Pointer[fakeRuntime]
}

func (l *fakeLauncher) Launch(_ context.Context) (Runtime, error) {
	if l.err != nil {
		return nil, l.err
	}

	n := l.launches.Add(1)
	rt := &fakeRuntime{id: fmt.Sprintf("process-%d", n), page: l.page}
	l.last.Store(rt)

	return rt, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AppConfig: &config.AppConfig{},
		AIConfig:  &config.AIConfig{},
		BrowserConfig: &config.BrowserConfig{
			ActionTimeout:     15000,
			NavigationTimeout: 15000,
			ScreenshotDir:     t.TempDir(),
		},
		AgentConfig: &config.AgentConfig{MaxIterations: 16},
	}
}

func newTestActions(t *testing.T, launcher Launcher) (*Actions, *SessionResource) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	sessions := NewSessionResource(SessionParams{Logger: logger, Launcher: launcher})

	return NewActions(ActionsParams{
		Config:   testConfig(t),
		Logger:   logger,
		Sessions: sessions,
	}), sessions
}
