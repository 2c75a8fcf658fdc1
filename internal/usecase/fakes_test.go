package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePage struct {
	title string
	text  string
}

// fakeActions records calls and serves a tiny in-memory web.
type fakeActions struct {
	mu sync.Mutex

	pages      map[string]fakePage
	hasForm    bool
	sessionErr error
	inspectErr error
	clickTo    string

	location   entity.Location
	text       string
	calls      []string
	candidates []entity.ClickCandidate
	filled     string
	linkFilter entity.LinkFilter
}

var _ ports.ActionInterface = (*fakeActions)(nil)

func (f *fakeActions) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)

	return f.sessionErr
}

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeActions) Open(_ context.Context, url string, _ time.Duration) (entity.ActionResult, error) {
	if err := f.record("open:" + url); err != nil {
		return entity.ActionResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	page := f.pages[url]
	f.location = entity.Location{URL: url, Title: page.title}
	f.text = page.text

	return entity.Succeeded(map[string]any{"url": url, "title": page.title}), nil
}

func (f *fakeActions) ClickBySelector(_ context.Context, selector string, _ time.Duration) (entity.ActionResult, error) {
	return entity.Succeeded(nil), f.record("click_selector:" + selector)
}

func (f *fakeActions) ClickByRole(_ context.Context, role, namePattern string, _ time.Duration) (entity.ActionResult, error) {
	return entity.Succeeded(nil), f.record("click_role:" + role + ":" + namePattern)
}

// ClickByText follows clickTo when it is set, like a link would.
func (f *fakeActions) ClickByText(_ context.Context, text string, _ bool, _ time.Duration) (entity.ActionResult, error) {
	if err := f.record("click_text:" + text); err != nil {
		return entity.ActionResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.clickTo == "" {
		return entity.Succeeded(nil), nil
	}

	f.location = entity.Location{URL: f.clickTo}

	return entity.Succeeded(map[string]any{"url": f.clickTo}), nil
}

func (f *fakeActions) ClickFirstOf(_ context.Context, candidates []entity.ClickCandidate, _ time.Duration) (entity.ActionResult, error) {
	f.mu.Lock()
	f.candidates = candidates
	f.mu.Unlock()

	return entity.Succeeded(nil), f.record("click_first_of")
}

func (f *fakeActions) Fill(_ context.Context, selector, value string, _ time.Duration) (entity.ActionResult, error) {
	f.mu.Lock()
	f.filled = value
	f.mu.Unlock()

	return entity.Succeeded(map[string]any{"value_len": len(value)}), f.record("fill:" + selector)
}

func (f *fakeActions) WaitForState(_ context.Context, selector string, state ports.WaitState, _ time.Duration) (entity.ActionResult, error) {
	return entity.Succeeded(nil), f.record("wait_for:" + selector + ":" + string(state))
}

func (f *fakeActions) Scroll(_ context.Context, _, _ int, _ time.Duration) (entity.ActionResult, error) {
	return entity.Succeeded(nil), f.record("scroll")
}

func (f *fakeActions) ReadLocation(_ context.Context) (entity.ActionResult, error) {
	if err := f.record("read_location"); err != nil {
		return entity.ActionResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return entity.Succeeded(map[string]any{"url": f.location.URL, "title": f.location.Title}), nil
}

func (f *fakeActions) Screenshot(_ context.Context, path string, _ bool) (entity.ActionResult, error) {
	return entity.Succeeded(map[string]any{"path": "/shots/" + path}), f.record("screenshot:" + path)
}

func (f *fakeActions) DetectFormPresence(_ context.Context, _ time.Duration) (entity.ActionResult, error) {
	return entity.Succeeded(map[string]any{"has_fields": f.hasForm}), f.record("detect_form")
}

func (f *fakeActions) EnumerateLinks(_ context.Context, _ int, filter entity.LinkFilter) (entity.ActionResult, error) {
	f.mu.Lock()
	f.linkFilter = filter
	f.mu.Unlock()

	return entity.Succeeded(map[string]any{"count": 0}), f.record("enumerate_links")
}

func (f *fakeActions) Inspect(_ context.Context) (entity.Location, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.location, f.text, f.inspectErr
}

// funcPolicy adapts plain functions to ports.DecisionPolicy.
type funcPolicy struct {
	choose func(ctx context.Context, req *entity.DecisionRequest) (*entity.Decision, error)
	final  func(ctx context.Context, req *entity.FinalAnswerRequest) (string, error)
}

func (p funcPolicy) ChooseAction(ctx context.Context, req *entity.DecisionRequest) (*entity.Decision, error) {
	return p.choose(ctx, req)
}

func (p funcPolicy) FinalAnswer(ctx context.Context, req *entity.FinalAnswerRequest) (string, error) {
	if p.final == nil {
		return "{}", nil
	}

	return p.final(ctx, req)
}

func always(action entity.ActionName, args map[string]any) funcPolicy {
	return funcPolicy{choose: func(context.Context, *entity.DecisionRequest) (*entity.Decision, error) {
		return &entity.Decision{Action: action, Arguments: args}, nil
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{},
		AIConfig:  &config.AIConfig{},
		BrowserConfig: &config.BrowserConfig{
			ActionTimeout:     1000,
			NavigationTimeout: 2000,
		},
		AgentConfig: &config.AgentConfig{
			MaxIterations: 16,
			TaskTimeout:   time.Minute,
			TextExcerpt:   200,
		},
	}
}

func newTestExecutor(t *testing.T, cfg *config.Config, actions ports.ActionInterface, policy ports.DecisionPolicy) *Executor {
	t.Helper()

	exec, err := NewExecutor(ExecutorParams{
		Config:  cfg,
		Logger:  zaptest.NewLogger(t),
		Actions: actions,
		Policy:  policy,
	})
	require.NoError(t, err)

	return exec
}
