package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"github.com/Stanleyhoo1/Afterversed/pkg/tracing"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionResourceName = "SessionResource"
	sessionTracer       = "browser.session"
)

type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionActive        SessionState = "active"
	SessionClosed        SessionState = "closed"
)

// Runtime is one running browser process with its single context.
type Runtime interface {
	ID() string
	NewPage() (playwright.Page, error)
	// Connected is false once the browser process has gone away.
	Connected() bool
	// Close tears down context, browser and driver in that order.
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Runtime, error)
}

// Session is what an action borrows: the page plus the id of the process behind it.
type Session struct {
	ProcessID string
	Page      playwright.Page
}

// SessionResource owns the one browser session of the process.
//
// mu guards creation and teardown only. useMu is held by whoever borrows the
// session for an action, so actions from concurrent tasks run one at a time.
type SessionResource struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	launcher Launcher

	useMu   sync.Mutex
	mu      sync.Mutex
	runtime Runtime
	page    playwright.Page
	state   SessionState
}

type SessionParams struct {
	fx.In

	Logger   *zap.Logger
	Launcher Launcher
}

func NewSessionResource(params SessionParams) *SessionResource {
	return &SessionResource{
		logger:   params.Logger.With(zap.String(logg.Layer, sessionResourceName)),
		tracer:   otel.Tracer(sessionTracer),
		launcher: params.Launcher,
		state:    SessionUninitialized,
	}
}

func (r *SessionResource) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Acquire returns the live session, launching the browser on first use and
// opening a fresh page when the previous one was closed externally. A runtime
// whose browser disconnected, or that cannot open a page, is discarded so the
// next call launches a new one.
func (r *SessionResource) Acquire(ctx context.Context) (sess *Session, err error) {
	const op = "Acquire"
	logger := r.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runtime != nil && !r.runtime.Connected() {
		step.AddEvent("browser disconnected")
		r.discard(logger, "browser disconnected")
	}

	if r.runtime == nil {
		step.AddEvent("launching browser")
		logger.Info("Launching browser session")

		rt, err := r.launcher.Launch(ctx)
		if err != nil {
			return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
				apperr.MetaReason: "launch_failed",
				apperr.MetaStage:  apperr.StageSession,
			})
		}

		r.runtime = rt
		r.page = nil
		logger.Info("Browser session launched", zap.String(logg.ProcessID, rt.ID()))
	}

	if r.page == nil || r.page.IsClosed() {
		step.AddEvent("opening page")

		page, err := r.runtime.NewPage()
		if err != nil {
			r.discard(logger, "page could not be opened")

			return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageSession,
			})
		}

		r.page = page
	}

	r.state = SessionActive
	step.SetAttributes(attribute.String("process_id", r.runtime.ID()))

	return &Session{ProcessID: r.runtime.ID(), Page: r.page}, nil
}

// discard drops a broken runtime. The caller holds mu.
func (r *SessionResource) discard(logger *zap.Logger, why string) {
	processID := r.runtime.ID()

	if err := r.runtime.Close(); err != nil {
		logger.Debug("Closing broken browser failed", zap.String(logg.ProcessID, processID), zap.Error(err))
	}

	logger.Warn("Discarding browser session", zap.String(logg.ProcessID, processID), zap.String("why", why))

	r.runtime = nil
	r.page = nil
	r.state = SessionClosed
}

// Borrow acquires the session for the duration of one action. The returned
// func must be called when the action is done.
func (r *SessionResource) Borrow(ctx context.Context) (*Session, func(), error) {
	r.useMu.Lock()

	sess, err := r.Acquire(ctx)
	if err != nil {
		r.useMu.Unlock()

		return nil, func() {}, err
	}

	return sess, r.useMu.Unlock, nil
}

// Release tears the session down and resets every handle. Calling it on an
// uninitialized or already closed resource is a no-op.
func (r *SessionResource) Release(ctx context.Context) (err error) {
	const op = "Release"
	logger := r.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, r.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	r.useMu.Lock()
	defer r.useMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runtime == nil {
		return nil
	}

	processID := r.runtime.ID()
	closeErr := r.runtime.Close()

	r.runtime = nil
	r.page = nil
	r.state = SessionClosed

	if closeErr != nil {
		logger.Warn("Browser teardown reported errors", zap.String(logg.ProcessID, processID), zap.Error(closeErr))

		return apperr.Wrap(op, apperr.CodeInternal, closeErr, map[string]any{
			apperr.MetaReason: "teardown_failed",
			apperr.MetaStage:  apperr.StageSession,
		})
	}

	logger.Info("Browser session released", zap.String(logg.ProcessID, processID))

	return nil
}

// PlaywrightLauncher starts Chromium through the playwright driver.
type PlaywrightLauncher struct {
	config *config.Config
	logger *zap.Logger
}

type LauncherParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewPlaywrightLauncher(params LauncherParams) *PlaywrightLauncher {
	return &PlaywrightLauncher{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, "PlaywrightLauncher")),
	}
}

func (l *PlaywrightLauncher) Launch(_ context.Context) (Runtime, error) {
	cfg := l.config.BrowserConfig

	if cfg.AutoInstall {
		l.logger.Info("Ensuring playwright chromium is installed")

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, apperr.WrapWithReason("Launch", apperr.CodeUnavailable, err, "playwright_install_failed")
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, apperr.WrapWithReason("Launch", apperr.CodeUnavailable, err, "playwright_start_failed")
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo)),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		_ = pw.Stop()

		return nil, apperr.WrapWithReason("Launch", apperr.CodeUnavailable, err, "browser_launch_failed")
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
		Locale:            playwright.String(cfg.Locale),
		TimezoneId:        playwright.String(cfg.Timezone),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()

		return nil, apperr.WrapWithReason("Launch", apperr.CodeUnavailable, err, "context_create_failed")
	}

	return &playwrightRuntime{
		id:      uuid.NewString(),
		pw:      pw,
		browser: browser,
		context: browserContext,
	}, nil
}

type playwrightRuntime struct {
	id      string
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func (p *playwrightRuntime) ID() string {
	return p.id
}

func (p *playwrightRuntime) Connected() bool {
	return p.browser.IsConnected()
}

func (p *playwrightRuntime) NewPage() (playwright.Page, error) {
	for _, page := range p.context.Pages() {
		if !page.IsClosed() {
			return page, nil
		}
	}

	return p.context.NewPage()
}

func (p *playwrightRuntime) Close() error {
	var errs []error

	if err := p.context.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := p.browser.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := p.pw.Stop(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
