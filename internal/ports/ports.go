package ports

import (
	"context"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
)

// WaitState mirrors the element states wait_for can block on.
type WaitState string

const (
	WaitVisible  WaitState = "visible"
	WaitHidden   WaitState = "hidden"
	WaitAttached WaitState = "attached"
	WaitDetached WaitState = "detached"
)

// ActionInterface is the closed set of primitive browser operations.
//
// Transient failures come back inside ActionResult. A non-nil error means the
// browser session itself could not be obtained and no further action is possible.
type ActionInterface interface {
	Open(ctx context.Context, url string, timeout time.Duration) (entity.ActionResult, error)
	ClickBySelector(ctx context.Context, selector string, timeout time.Duration) (entity.ActionResult, error)
	ClickByRole(ctx context.Context, role, namePattern string, timeout time.Duration) (entity.ActionResult, error)
	ClickByText(ctx context.Context, text string, exact bool, timeout time.Duration) (entity.ActionResult, error)
	ClickFirstOf(ctx context.Context, candidates []entity.ClickCandidate, timeoutEach time.Duration) (entity.ActionResult, error)
	Fill(ctx context.Context, selector, value string, timeout time.Duration) (entity.ActionResult, error)
	WaitForState(ctx context.Context, selector string, state WaitState, timeout time.Duration) (entity.ActionResult, error)
	Scroll(ctx context.Context, pixels, repeats int, delay time.Duration) (entity.ActionResult, error)
	ReadLocation(ctx context.Context) (entity.ActionResult, error)
	Screenshot(ctx context.Context, path string, fullPage bool) (entity.ActionResult, error)
	DetectFormPresence(ctx context.Context, timeout time.Duration) (entity.ActionResult, error)
	EnumerateLinks(ctx context.Context, limit int, filter entity.LinkFilter) (entity.ActionResult, error)

	// Inspect reads location and visible page text for stop evaluation.
	Inspect(ctx context.Context) (entity.Location, string, error)
}

// DecisionPolicy chooses the next action. Implementations keep no per-task
// state; everything they need arrives in the request.
type DecisionPolicy interface {
	ChooseAction(ctx context.Context, req *entity.DecisionRequest) (*entity.Decision, error)
	FinalAnswer(ctx context.Context, req *entity.FinalAnswerRequest) (string, error)
}

type SessionReleaser interface {
	Release(ctx context.Context) error
}

// TaskRunner drives one task to a terminal state. The returned Run is non-nil
// whenever the task got past validation, including on failure.
type TaskRunner interface {
	Run(ctx context.Context, task *taskconfig.TaskConfiguration) (*entity.Run, error)
}
