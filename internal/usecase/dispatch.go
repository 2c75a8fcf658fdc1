package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

const (
	defaultScrollPixels = 800
	defaultScrollDelay  = 300 * time.Millisecond
	defaultLinkLimit    = 100
	argsSchemaBaseURL   = "https://afterversed.local/actions/"
)

var (
	errUnknownAction  = errors.New("unknown action")
	errBlockedDomain  = errors.New("url is on a blocked domain")
	errNoCandidates   = errors.New("click_first_of needs candidates or texts")
	errInvalidPattern = errors.New("invalid name pattern")
)

// Dispatcher validates a decision's arguments and runs the matching action.
type Dispatcher struct {
	actions ports.ActionInterface
	config  *config.BrowserConfig
	logger  *zap.Logger
	schemas map[entity.ActionName]*jsonschema.Schema
}

func NewDispatcher(actions ports.ActionInterface, cfg *config.BrowserConfig, logger *zap.Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		actions: actions,
		config:  cfg,
		logger:  logger,
		schemas: make(map[entity.ActionName]*jsonschema.Schema, len(actionCatalogue)),
	}

	for _, spec := range append(append([]entity.ActionSpec{}, actionCatalogue...), finishSpec, giveUpSpec) {
		schema, err := compileParams(spec)
		if err != nil {
			return nil, err
		}

		d.schemas[spec.Name] = schema
	}

	return d, nil
}

func compileParams(spec entity.ActionSpec) (*jsonschema.Schema, error) {
	data, err := json.Marshal(spec.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal %s parameters: %w", spec.Name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	url := argsSchemaBaseURL + string(spec.Name) + ".json"
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load %s parameters: %w", spec.Name, err)
	}

	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s parameters: %w", spec.Name, err)
	}

	return schema, nil
}

// Validate checks the arguments of a decision against its action's schema.
func (d *Dispatcher) Validate(decision *entity.Decision) error {
	schema, ok := d.schemas[decision.Action]
	if !ok {
		return fmt.Errorf("%w %q", errUnknownAction, decision.Action)
	}

	args := decision.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := schema.Validate(normalizeArgs(args)); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", decision.Action, err)
	}

	return nil
}

// Dispatch runs one browser action. Bad arguments, unknown actions and blocked
// URLs come back as failed results; only a session failure is returned as error.
func (d *Dispatcher) Dispatch(ctx context.Context, task *taskconfig.TaskConfiguration, decision *entity.Decision) (entity.ActionResult, error) {
	logger := d.logger.With(zap.String(logg.Action, string(decision.Action)))

	if decision.Action.IsControl() {
		return entity.Failed(fmt.Errorf("%s is not a browser action", decision.Action), nil), nil
	}

	if err := d.Validate(decision); err != nil {
		logger.Debug("Rejected decision arguments", zap.Error(err))

		return entity.Failed(err, map[string]any{"code": apperr.CodeInvalidArgument}), nil
	}

	args := decision.Arguments
	timeout := d.timeout(args, "timeout_ms", d.config.ActionTimeoutDuration())

	switch decision.Action {
	case entity.ActionOpen:
		url := argString(args, "url")
		if task.BlocksURL(url) {
			logger.Info("Refused blocked URL", zap.String(logg.URL, url))

			return entity.Failed(errBlockedDomain, map[string]any{"code": apperr.CodeBlockedDomain, "url": url}), nil
		}

		return d.actions.Open(ctx, url, d.timeout(args, "timeout_ms", d.config.NavigationTimeoutDuration()))
	case entity.ActionClickSelector:
		return d.guardClick(ctx, task, logger, func() (entity.ActionResult, error) {
			return d.actions.ClickBySelector(ctx, argString(args, "selector"), timeout)
		})
	case entity.ActionClickRole:
		return d.guardClick(ctx, task, logger, func() (entity.ActionResult, error) {
			return d.actions.ClickByRole(ctx, argString(args, "role"), argString(args, "name_pattern"), timeout)
		})
	case entity.ActionClickText:
		return d.guardClick(ctx, task, logger, func() (entity.ActionResult, error) {
			return d.actions.ClickByText(ctx, argString(args, "text"), argBool(args, "exact"), timeout)
		})
	case entity.ActionClickFirstOf:
		candidates, err := clickCandidates(args)
		if err != nil {
			return entity.Failed(err, map[string]any{"code": apperr.CodeInvalidArgument}), nil
		}

		return d.guardClick(ctx, task, logger, func() (entity.ActionResult, error) {
			return d.actions.ClickFirstOf(ctx, candidates, d.timeout(args, "timeout_each_ms", 0))
		})
	case entity.ActionFill:
		return d.actions.Fill(ctx, argString(args, "selector"), argString(args, "value"), timeout)
	case entity.ActionWaitFor:
		state := ports.WaitState(argString(args, "state"))
		if state == "" {
			state = ports.WaitVisible
		}

		return d.actions.WaitForState(ctx, argString(args, "selector"), state, timeout)
	case entity.ActionScroll:
		return d.actions.Scroll(ctx,
			argInt(args, "pixels", defaultScrollPixels),
			argInt(args, "repeats", 1),
			d.timeout(args, "delay_ms", defaultScrollDelay))
	case entity.ActionReadLocation:
		return d.actions.ReadLocation(ctx)
	case entity.ActionScreenshot:
		return d.actions.Screenshot(ctx, argString(args, "path"), argBool(args, "full_page"))
	case entity.ActionDetectForm:
		return d.actions.DetectFormPresence(ctx, d.timeout(args, "timeout_ms", 0))
	case entity.ActionEnumerateLinks:
		filter := task.LinkFilter(argString(args, "domain_filter"))

		return d.actions.EnumerateLinks(ctx, argInt(args, "limit", defaultLinkLimit), filter)
	default:
		return entity.Failed(fmt.Errorf("%w %q", errUnknownAction, decision.Action), nil), nil
	}
}

func (d *Dispatcher) timeout(args map[string]any, key string, fallback time.Duration) time.Duration {
	ms := argInt(args, key, 0)
	if ms <= 0 {
		return fallback
	}

	return time.Duration(ms) * time.Millisecond
}

// guardClick runs a click and, when it lands on a blocked domain, navigates
// back to where the page was and reports a blocked_domain failure.
func (d *Dispatcher) guardClick(
	ctx context.Context,
	task *taskconfig.TaskConfiguration,
	logger *zap.Logger,
	click func() (entity.ActionResult, error),
) (entity.ActionResult, error) {
	if len(task.BlockDomains) == 0 {
		return click()
	}

	before, err := d.actions.ReadLocation(ctx)
	if err != nil {
		return entity.ActionResult{}, err
	}

	res, err := click()
	if err != nil || !res.OK {
		return res, err
	}

	landed := res.String("url")
	if landed == "" {
		after, err := d.actions.ReadLocation(ctx)
		if err != nil {
			return entity.ActionResult{}, err
		}

		landed = after.String("url")
	}

	if !task.BlocksURL(landed) {
		return res, nil
	}

	logger.Info("Click led to a blocked URL", zap.String(logg.URL, landed))

	payload := map[string]any{"code": apperr.CodeBlockedDomain, "url": landed}

	if previous := before.String("url"); previous != "" {
		if _, err := d.actions.Open(ctx, previous, d.config.NavigationTimeoutDuration()); err != nil {
			return entity.ActionResult{}, err
		}

		payload["returned_to"] = previous
	}

	return entity.Failed(errBlockedDomain, payload), nil
}

// clickCandidates reads structured candidates first, then the texts shortcut.
// Each text becomes a button-name candidate followed by a plain text candidate.
func clickCandidates(args map[string]any) ([]entity.ClickCandidate, error) {
	var out []entity.ClickCandidate

	if raw, ok := args["candidates"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}

			c := entity.ClickCandidate{
				Kind:  entity.CandidateKind(argString(m, "kind")),
				Role:  argString(m, "role"),
				Value: argString(m, "value"),
				Exact: argBool(m, "exact"),
			}

			if c.Kind == entity.CandidateRole {
				if _, err := regexp.Compile("(?i)" + c.Value); err != nil {
					return nil, fmt.Errorf("%w %q: %w", errInvalidPattern, c.Value, err)
				}
			}

			out = append(out, c)
		}
	}

	for _, text := range strings.Split(argString(args, "texts"), "|") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		out = append(out,
			entity.ClickCandidate{Kind: entity.CandidateRole, Role: "button", Value: regexp.QuoteMeta(text)},
			entity.ClickCandidate{Kind: entity.CandidateText, Value: text},
		)
	}

	if len(out) == 0 {
		return nil, errNoCandidates
	}

	return out, nil
}

// redactArguments copies args for the audit trail without the fill value.
func redactArguments(action entity.ActionName, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	if action == entity.ActionFill {
		if v, ok := out["value"].(string); ok {
			out["value"] = "[redacted]"
			out["value_len"] = len([]rune(v))
		}
	}

	return out
}

// normalizeArgs turns the integer types a YAML decoder produces into float64
// so every decision source validates the same way.
func normalizeArgs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeArgs(val)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeArgs(val)
		}

		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)

	return v
}

func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}

	return fallback
}
