// Package usecase runs navigation tasks: the decision loop, action dispatch
// and the task operations built on top of it.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/browser"
	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/internal/result"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"github.com/Stanleyhoo1/Afterversed/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	executorName   = "Executor"
	executorTracer = "usecase.executor"
)

var (
	errMaxIterations   = errors.New("iteration budget exhausted without reaching the goal")
	errFinishForbidden = errors.New("finish is not allowed for this task")
)

var _ ports.TaskRunner = (*Executor)(nil)

// Executor drives one task from INIT to a terminal state.
type Executor struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	actions    ports.ActionInterface
	policy     ports.DecisionPolicy
	dispatcher *Dispatcher
	limiter    *rate.Limiter
}

type ExecutorParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Actions ports.ActionInterface
	Policy  ports.DecisionPolicy
}

func NewExecutor(params ExecutorParams) (*Executor, error) {
	logger := params.Logger.With(zap.String(logg.Layer, executorName))

	dispatcher, err := NewDispatcher(params.Actions, params.Config.BrowserConfig, logger)
	if err != nil {
		return nil, err
	}

	return &Executor{
		config:     params.Config,
		logger:     logger,
		tracer:     otel.Tracer(executorTracer),
		actions:    params.Actions,
		policy:     params.Policy,
		dispatcher: dispatcher,
		limiter:    newLimiter(params.Config.AIConfig.RequestsPerMinute),
	}, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// runState is what one Run carries between cycles.
type runState struct {
	run      *entity.Run
	task     *taskconfig.TaskConfiguration
	brief    string
	actions  []entity.ActionSpec
	limit    int
	excerpt  int
	location entity.Location
	text     string
}

func (s *runState) observation() entity.Observation {
	obs := entity.Observation{
		Iteration:   len(s.run.Steps),
		Location:    s.location,
		TextExcerpt: browser.Excerpt(s.text, s.excerpt),
		Remaining:   s.limit - len(s.run.Steps),
	}

	if n := len(s.run.Steps); n > 0 {
		last := s.run.Steps[n-1]
		obs.LastAction = last.Action
		obs.LastResult = &last.Result
	}

	return obs
}

// Run executes task until a stop condition fires, the decision-maker gives up
// or a budget runs out. The returned Run is non-nil for every task that
// passed validation; on failure it carries a Failure with the step trail and
// the returned error has the same code.
func (e *Executor) Run(ctx context.Context, task *taskconfig.TaskConfiguration) (run *entity.Run, err error) {
	const op = "Executor.Run"
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskName, task.Name))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op, attribute.String("task", task.Name))
	defer func() {
		step.End(err)
	}()

	if err := task.Validate(); err != nil {
		return nil, err
	}

	stops, err := taskconfig.NewStopEvaluator(task)
	if err != nil {
		return nil, apperr.InvalidReqError(op, "stop_url_patterns", err)
	}

	schema, err := resultSchema(task.Schema())
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "schema_unavailable",
			apperr.MetaStage:  apperr.StagePreparation,
		})
	}

	if timeout := e.config.AgentConfig.TaskTimeout; timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limit := task.Iterations(e.config.AgentConfig.MaxIterations)

	state := &runState{
		run: &entity.Run{
			ID:        uuid.New(),
			Task:      task.Name,
			State:     entity.StateInit,
			Steps:     make([]entity.PlanStep, 0, limit),
			StartedAt: time.Now(),
		},
		task:    task,
		brief:   Brief(task, limit),
		actions: Catalogue(task.AllowFinish),
		limit:   limit,
		excerpt: e.config.AgentConfig.TextExcerpt,
	}

	logger = logger.With(zap.String(logg.TaskID, state.run.ID.String()))
	logger.Info("Task started", zap.Int("max_iterations", limit))

	state.run.State = entity.StateRunning

	stopReason, err := e.loop(ctx, logger, state, stops)
	if err != nil {
		return e.fail(logger, state, err)
	}

	step.AddEvent("stop condition reached", attribute.String("stop_reason", stopReason))

	if err := e.finalize(ctx, state, schema, stopReason); err != nil {
		return e.fail(logger, state, err)
	}

	logger.Info("Task succeeded",
		zap.String(logg.StopReason, stopReason),
		zap.Int("steps", len(state.run.Steps)))

	return state.run, nil
}

// loop runs decision cycles and returns the success stop reason.
func (e *Executor) loop(ctx context.Context, logger *zap.Logger, state *runState, stops *taskconfig.StopEvaluator) (string, error) {
	const op = "Executor.loop"

	for i := 0; i < state.limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", deadlineError(op, err, i)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return "", deadlineError(op, err, i)
		}

		reason, err := e.cycle(ctx, logger.With(zap.Int(logg.Iteration, i)), state, stops)
		if err != nil {
			return "", err
		}

		if reason != "" {
			return reason, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return "", deadlineError(op, err, state.limit)
	}

	return "", apperr.Wrap(op, apperr.CodeMaxIterations, errMaxIterations, map[string]any{
		apperr.MetaReason:    "max_iterations_reached",
		apperr.MetaStage:     apperr.StageExecution,
		apperr.MetaIteration: state.limit,
	})
}

// cycle asks for one decision, executes it and evaluates stop conditions.
func (e *Executor) cycle(ctx context.Context, logger *zap.Logger, state *runState, stops *taskconfig.StopEvaluator) (reason string, err error) {
	const op = "Executor.cycle"
	iteration := len(state.run.Steps)

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op, attribute.Int("iteration", iteration))
	defer func() {
		step.End(err)
	}()

	decision, err := e.policy.ChooseAction(ctx, &entity.DecisionRequest{
		Brief:       state.brief,
		Actions:     state.actions,
		History:     state.run.Steps,
		Observation: state.observation(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", deadlineError(op, ctxErr, iteration)
		}

		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason:    "decision_failed",
			apperr.MetaStage:     apperr.StageDecision,
			apperr.MetaIteration: iteration,
		})
	}

	step.SetAttributes(attribute.String("action", string(decision.Action)))
	logger.Info("Action chosen", zap.String(logg.Action, string(decision.Action)))

	planStep := entity.PlanStep{
		Iteration: iteration,
		Action:    decision.Action,
		Arguments: redactArguments(decision.Action, decision.Arguments),
		Thought:   decision.Thought,
		At:        time.Now(),
	}

	switch decision.Action {
	case entity.ActionGiveUp:
		why := argString(decision.Arguments, "reason")
		planStep.Result = entity.Succeeded(map[string]any{"reason": why})
		state.run.Steps = append(state.run.Steps, planStep)

		return "", apperr.Wrap(op, apperr.CodeGaveUp, fmt.Errorf("decision-maker gave up: %s", why), map[string]any{
			apperr.MetaReason:    "gave_up",
			apperr.MetaStage:     apperr.StageDecision,
			apperr.MetaIteration: iteration,
		})
	case entity.ActionFinish:
		if !state.task.AllowFinish {
			planStep.Result = entity.Failed(errFinishForbidden, nil)
			state.run.Steps = append(state.run.Steps, planStep)

			return "", nil
		}

		planStep.Result = entity.Succeeded(map[string]any{"reason": argString(decision.Arguments, "reason")})
		state.run.Steps = append(state.run.Steps, planStep)

		return taskconfig.StopFinished, nil
	}

	res, err := e.dispatcher.Dispatch(ctx, state.task, decision)
	if err != nil {
		return "", resourceError(op, err, iteration)
	}

	planStep.Result = res
	state.run.Steps = append(state.run.Steps, planStep)

	if !res.OK {
		logger.Debug("Action failed", zap.String("error", res.Error))
	}

	location, text, err := e.actions.Inspect(ctx)
	if err != nil {
		return "", resourceError(op, err, iteration)
	}

	state.location = location
	state.text = text

	reason = stops.Evaluate(taskconfig.StopInput{Step: planStep, Location: location, Text: text})
	if reason != "" {
		logger.Info("Stop condition met", zap.String(logg.StopReason, reason), zap.String(logg.URL, location.URL))
	}

	return reason, nil
}

// finalize requests the final answer and validates it against the task schema.
func (e *Executor) finalize(ctx context.Context, state *runState, schema *result.Schema, stopReason string) error {
	const op = "Executor.finalize"

	state.run.StopReason = stopReason

	req := &entity.FinalAnswerRequest{
		Brief:       state.brief,
		History:     state.run.Steps,
		Observation: state.observation(),
		StopReason:  stopReason,
	}

	if schema != nil {
		req.Schema = schema.Text()
	}

	answer, err := e.policy.FinalAnswer(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return deadlineError(op, ctxErr, len(state.run.Steps))
		}

		return apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: "final_answer_failed",
			apperr.MetaStage:  apperr.StageDecision,
		})
	}

	state.run.RawAnswer = answer

	doc, err := result.Parse(answer, schema)
	if err != nil {
		return err
	}

	completed := time.Now()
	state.run.Result = doc
	state.run.State = entity.StateTerminalSuccess
	state.run.CompletedAt = &completed

	return nil
}

func (e *Executor) fail(logger *zap.Logger, state *runState, err error) (*entity.Run, error) {
	completed := time.Now()

	run := state.run
	run.State = entity.StateTerminalFailure
	run.CompletedAt = &completed
	run.Failure = &entity.Failure{
		Code:         apperr.CodeOf(err),
		Reason:       apperr.ReasonOf(err),
		Message:      err.Error(),
		LastLocation: state.location,
		Steps:        run.Steps,
	}

	logger.Warn("Task failed",
		zap.String("code", run.Failure.Code),
		zap.String("reason", run.Failure.Reason),
		zap.Int("steps", len(run.Steps)),
		zap.String(logg.URL, state.location.URL),
		zap.Error(err))

	return run, err
}

func resultSchema(kind taskconfig.SchemaKind) (*result.Schema, error) {
	if kind == taskconfig.SchemaAny {
		return nil, nil
	}

	return result.Builtin(string(kind))
}

func deadlineError(op string, err error, iteration int) error {
	code := apperr.CodeDeadlineExceeded
	reason := "task_timeout"

	if errors.Is(err, context.Canceled) {
		code = apperr.CodeCancelled
		reason = "cancelled"
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason:    reason,
		apperr.MetaStage:     apperr.StageExecution,
		apperr.MetaIteration: iteration,
	})
}

// resourceError keeps the session's own code (unavailable) when it has one.
func resourceError(op string, err error, iteration int) error {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		code = apperr.CodeUnavailable
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason:    "session_failed",
		apperr.MetaStage:     apperr.StageSession,
		apperr.MetaIteration: iteration,
	})
}
