package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/fallback"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"github.com/Stanleyhoo1/Afterversed/pkg/tracing"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	actionsName   = "Actions"
	actionsTracer = "browser.actions"

	candidateTimeoutCap = 3 * time.Second
	formProbeTimeout    = 8 * time.Second
	maxScrollRepeats    = 20
	defaultScreenshot   = "page.png"
)

var _ ports.ActionInterface = (*Actions)(nil)

// Actions implements every primitive over the shared SessionResource.
type Actions struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	sessions *SessionResource
}

type ActionsParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Sessions *SessionResource
}

func NewActions(params ActionsParams) *Actions {
	return &Actions{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, actionsName)),
		tracer:   otel.Tracer(actionsTracer),
		sessions: params.Sessions,
	}
}

type actionFunc func(ctx context.Context, page playwright.Page, logger *zap.Logger) entity.ActionResult

// perform borrows the session for exactly one action. Only a failure to
// obtain the session is returned as an error.
func (a *Actions) perform(ctx context.Context, op string, fn actionFunc, attrs ...attribute.KeyValue) (res entity.ActionResult, err error) {
	logger := a.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attrs...)
	defer func() {
		step.End(err)
	}()

	sess, done, err := a.sessions.Borrow(ctx)
	if err != nil {
		logger.Error("Browser session unavailable", zap.Error(err))

		return entity.ActionResult{}, err
	}
	defer done()

	res = fn(ctx, sess.Page, logger)

	step.SetAttributes(attribute.Bool("ok", res.OK))
	if !res.OK {
		step.AddEvent("action failed", attribute.String("error", res.Error))
		logger.Debug("Action failed", zap.String("error", res.Error))
	}

	return res, nil
}

func (a *Actions) timeoutOr(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}

	return a.config.BrowserConfig.ActionTimeoutDuration()
}

func (a *Actions) Open(ctx context.Context, url string, timeout time.Duration) (entity.ActionResult, error) {
	const op = "Open"

	if timeout <= 0 {
		timeout = a.config.BrowserConfig.NavigationTimeoutDuration()
	}

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, logger *zap.Logger) entity.ActionResult {
		logger.Info("Opening page", zap.String(logg.URL, url))

		_, err := page.Goto(url, playwright.PageGotoOptions{
			Timeout:   millis(timeout),
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
		if err != nil {
			return failure(err, map[string]any{"url": url})
		}

		return entity.Succeeded(locationPayload(page))
	}, attribute.String("url", url))
}

func (a *Actions) ClickBySelector(ctx context.Context, selector string, timeout time.Duration) (entity.ActionResult, error) {
	const op = "ClickBySelector"

	timeout = a.timeoutOr(timeout)

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		if err := clickSelector(page, selector, timeout); err != nil {
			return failure(err, map[string]any{"selector": selector})
		}

		return clicked(page, selector)
	}, attribute.String("selector", selector))
}

func (a *Actions) ClickByRole(ctx context.Context, role, namePattern string, timeout time.Duration) (entity.ActionResult, error) {
	const op = "ClickByRole"

	timeout = a.timeoutOr(timeout)

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		label := entity.ClickCandidate{Kind: entity.CandidateRole, Role: role, Value: namePattern}.Label()

		if err := clickRole(page, role, namePattern, timeout); err != nil {
			return failure(err, map[string]any{"selector": label})
		}

		return clicked(page, label)
	}, attribute.String("role", role), attribute.String("name", namePattern))
}

func (a *Actions) ClickByText(ctx context.Context, text string, exact bool, timeout time.Duration) (entity.ActionResult, error) {
	const op = "ClickByText"

	timeout = a.timeoutOr(timeout)

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		label := entity.ClickCandidate{Kind: entity.CandidateText, Value: text, Exact: exact}.Label()

		if err := clickText(page, text, exact, timeout); err != nil {
			return failure(err, map[string]any{"selector": label})
		}

		return clicked(page, label)
	}, attribute.String("text", text))
}

func (a *Actions) ClickFirstOf(ctx context.Context, candidates []entity.ClickCandidate, timeoutEach time.Duration) (entity.ActionResult, error) {
	const op = "ClickFirstOf"

	timeoutEach = a.timeoutOr(timeoutEach)

	return a.perform(ctx, op, func(ctx context.Context, page playwright.Page, logger *zap.Logger) entity.ActionResult {
		strategy := fallback.Strategy{
			PerCandidate: timeoutEach,
			Cap:          candidateTimeoutCap,
			OnAttempt: func(at fallback.Attempt) {
				logger.Debug("Click candidate attempted",
					zap.String(logg.Candidate, at.Candidate),
					zap.String(logg.Mechanism, at.Mechanism),
					zap.Bool("ok", at.Error == ""))
			},
		}

		options := make([]fallback.Candidate, 0, len(candidates))
		for _, c := range candidates {
			options = append(options, fallback.Candidate{
				Name:      c.Label(),
				Mechanism: string(c.Kind),
				Try: func(_ context.Context, timeout time.Duration) error {
					return clickCandidate(page, c, timeout)
				},
			})
		}

		outcome, err := strategy.Run(ctx, options)
		if err != nil {
			return failure(err, map[string]any{
				"attempted": outcome.Names(),
				"attempts":  outcome.Attempts,
			})
		}

		res := clicked(page, outcome.Matched.Candidate)
		res.Payload["mechanism"] = outcome.Matched.Mechanism
		res.Payload["index"] = outcome.Matched.Index
		res.Payload["attempted"] = outcome.Names()

		return res
	}, attribute.Int("candidates", len(candidates)))
}

func (a *Actions) Fill(ctx context.Context, selector, value string, timeout time.Duration) (entity.ActionResult, error) {
	const op = "Fill"

	timeout = a.timeoutOr(timeout)

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		err := page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
			Timeout: millis(timeout),
		})
		if err != nil {
			return failure(err, map[string]any{"selector": selector})
		}

		return entity.Succeeded(map[string]any{
			"selector":  selector,
			"value_len": utf8.RuneCountInString(value),
		})
	}, attribute.String("selector", selector))
}

func (a *Actions) WaitForState(ctx context.Context, selector string, state ports.WaitState, timeout time.Duration) (entity.ActionResult, error) {
	const op = "WaitForState"

	timeout = a.timeoutOr(timeout)

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		waitState, err := toWaitState(state)
		if err != nil {
			return entity.Failed(err, map[string]any{"selector": selector})
		}

		err = page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   waitState,
			Timeout: millis(timeout),
		})
		if err != nil {
			return failure(err, map[string]any{"selector": selector, "state": string(state)})
		}

		return entity.Succeeded(map[string]any{"selector": selector, "state": string(state)})
	}, attribute.String("selector", selector), attribute.String("state", string(state)))
}

func (a *Actions) Scroll(ctx context.Context, pixels, repeats int, delay time.Duration) (entity.ActionResult, error) {
	const op = "Scroll"

	repeats = min(max(repeats, 1), maxScrollRepeats)

	return a.perform(ctx, op, func(ctx context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		var offset any

		for i := 0; i < repeats; i++ {
			if i > 0 && delay > 0 {
				select {
				case <-ctx.Done():
					return entity.Failed(ctx.Err(), map[string]any{"scrolls": i})
				case <-time.After(delay):
				}
			}

			result, err := page.Evaluate(scrollScript, pixels)
			if err != nil {
				return failure(err, map[string]any{"scrolls": i})
			}

			offset = result
		}

		return entity.Succeeded(map[string]any{"scrolls": repeats, "offset": offset})
	}, attribute.Int("pixels", pixels), attribute.Int("repeats", repeats))
}

func (a *Actions) ReadLocation(ctx context.Context) (entity.ActionResult, error) {
	const op = "ReadLocation"

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		return entity.Succeeded(locationPayload(page))
	})
}

func (a *Actions) Screenshot(ctx context.Context, path string, fullPage bool) (entity.ActionResult, error) {
	const op = "Screenshot"

	target, err := a.screenshotPath(path)
	if err != nil {
		return entity.Failed(err, map[string]any{"path": path}), nil
	}

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return entity.Failed(err, map[string]any{"path": target})
		}

		_, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(target),
			FullPage: playwright.Bool(fullPage),
		})
		if err != nil {
			return failure(err, map[string]any{"path": target})
		}

		return entity.Succeeded(map[string]any{"path": target, "full_page": fullPage})
	}, attribute.String("path", target))
}

func (a *Actions) screenshotPath(path string) (string, error) {
	if path == "" {
		path = defaultScreenshot
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(a.config.BrowserConfig.ScreenshotDir, path)
	}

	return filepath.Abs(path)
}

// DetectFormPresence never fails on a missing form; absence is has_fields=false.
func (a *Actions) DetectFormPresence(ctx context.Context, timeout time.Duration) (entity.ActionResult, error) {
	const op = "DetectFormPresence"

	if timeout <= 0 {
		timeout = formProbeTimeout
	}

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		err := page.Locator(formFieldsSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: millis(timeout),
		})

		return entity.Succeeded(map[string]any{"has_fields": err == nil})
	})
}

func (a *Actions) EnumerateLinks(ctx context.Context, limit int, filter entity.LinkFilter) (entity.ActionResult, error) {
	const op = "EnumerateLinks"

	return a.perform(ctx, op, func(_ context.Context, page playwright.Page, _ *zap.Logger) entity.ActionResult {
		result, err := page.Locator("a[href]").EvaluateAll(linksScript)
		if err != nil {
			return failure(err, nil)
		}

		raw := decodeRawLinks(result)
		links := FilterLinks(raw, filter, limit)

		return entity.Succeeded(map[string]any{
			"links": links,
			"count": len(links),
			"seen":  len(raw),
		})
	}, attribute.Int("limit", limit), attribute.String("domain_filter", filter.DomainSuffix))
}

func (a *Actions) Inspect(ctx context.Context) (loc entity.Location, text string, err error) {
	const op = "Inspect"

	_, err = a.perform(ctx, op, func(_ context.Context, page playwright.Page, logger *zap.Logger) entity.ActionResult {
		loc = currentLocation(page)

		content, contentErr := page.Content()
		if contentErr != nil {
			logger.Debug("Page content unavailable", zap.Error(contentErr))

			return entity.Succeeded(nil)
		}

		text = ExtractText(content)

		return entity.Succeeded(nil)
	})

	return loc, text, err
}

func clickSelector(page playwright.Page, selector string, timeout time.Duration) error {
	target := page.Locator(selector).First()

	if err := target.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	}); err != nil {
		return err
	}

	return target.Click(playwright.LocatorClickOptions{Timeout: millis(timeout)})
}

func clickRole(page playwright.Page, role, namePattern string, timeout time.Duration) error {
	if role == "" {
		role = "button"
	}

	name, err := regexp.Compile("(?i)" + namePattern)
	if err != nil {
		return fmt.Errorf("invalid name pattern %q: %w", namePattern, err)
	}

	return page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{Name: name}).
		First().
		Click(playwright.LocatorClickOptions{Timeout: millis(timeout)})
}

func clickText(page playwright.Page, text string, exact bool, timeout time.Duration) error {
	target := page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(exact)}).First()

	if err := target.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	}); err != nil {
		return err
	}

	return target.Click(playwright.LocatorClickOptions{Timeout: millis(timeout)})
}

func clickCandidate(page playwright.Page, c entity.ClickCandidate, timeout time.Duration) error {
	switch c.Kind {
	case entity.CandidateRole:
		return clickRole(page, c.Role, c.Value, timeout)
	case entity.CandidateText:
		return clickText(page, c.Value, c.Exact, timeout)
	case entity.CandidateSelector:
		return clickSelector(page, c.Value, timeout)
	default:
		return fmt.Errorf("unknown candidate kind %q", c.Kind)
	}
}

func toWaitState(state ports.WaitState) (*playwright.WaitForSelectorState, error) {
	switch state {
	case ports.WaitVisible, "":
		return playwright.WaitForSelectorStateVisible, nil
	case ports.WaitHidden:
		return playwright.WaitForSelectorStateHidden, nil
	case ports.WaitAttached:
		return playwright.WaitForSelectorStateAttached, nil
	case ports.WaitDetached:
		return playwright.WaitForSelectorStateDetached, nil
	default:
		return nil, fmt.Errorf("unknown wait state %q", state)
	}
}

func currentLocation(page playwright.Page) entity.Location {
	title, _ := page.Title()

	return entity.Location{URL: page.URL(), Title: title}
}

func locationPayload(page playwright.Page) map[string]any {
	loc := currentLocation(page)

	return map[string]any{"url": loc.URL, "title": loc.Title}
}

func clicked(page playwright.Page, label string) entity.ActionResult {
	payload := locationPayload(page)
	payload["clicked"] = label

	return entity.Succeeded(payload)
}

// failure records a transient error and flags playwright timeouts.
func failure(err error, payload map[string]any) entity.ActionResult {
	if payload == nil {
		payload = make(map[string]any)
	}

	if errors.Is(err, playwright.ErrTimeout) {
		payload["timeout"] = true
	}

	return entity.Failed(err, payload)
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
