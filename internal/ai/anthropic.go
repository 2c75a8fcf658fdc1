package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"github.com/Stanleyhoo1/Afterversed/pkg/tracing"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	anthropicClientName = "AnthropicPolicy"
	anthropicTracer     = "ai.anthropic"
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
)

var errNoToolUse = errors.New("model returned no tool call")

// AnthropicPolicy talks to the Anthropic Messages API over plain HTTP and
// forces a tool call on every decision turn.
type AnthropicPolicy struct {
	config     *config.AIConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	baseURL    string
}

func NewAnthropicPolicy(cfg *config.AIConfig, logger *zap.Logger, httpClient *http.Client) *AnthropicPolicy {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &AnthropicPolicy{
		config:     cfg,
		logger:     logger.With(zap.String(logg.Layer, anthropicClientName)),
		tracer:     otel.Tracer(anthropicTracer),
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Temperature float32              `json:"temperature"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	InputSchema *entity.ParamSpec `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text,omitempty"`
		Name  string         `json:"name,omitempty"`
		Input map[string]any `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *AnthropicPolicy) ChooseAction(ctx context.Context, req *entity.DecisionRequest) (decision *entity.Decision, err error) {
	const op = "AnthropicPolicy.ChooseAction"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.Int(logg.Iteration, req.Observation.Iteration))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("history_len", len(req.History)),
		attribute.Int("actions_count", len(req.Actions)))
	defer func() {
		step.End(err)
	}()

	body := anthropicRequest{
		Model:       c.config.ModelName(),
		MaxTokens:   c.config.MaxTokens,
		System:      systemPrompt,
		Temperature: c.config.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: renderDecisionPrompt(req)}},
		Tools:       anthropicTools(req.Actions),
		ToolChoice:  &anthropicToolChoice{Type: "any"},
	}

	resp, err := c.send(ctx, logger, body)
	if err != nil {
		return nil, decisionError(op, err)
	}

	decision = &entity.Decision{}

	var thoughts []string

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			thoughts = append(thoughts, block.Text)
		case "tool_use":
			if decision.Action == "" {
				decision.Action = entity.ActionName(block.Name)
				decision.Arguments = block.Input
			}
		}
	}

	if decision.Action == "" {
		return nil, apperr.Wrap(op, apperr.CodeAIError, errNoToolUse, map[string]any{
			apperr.MetaReason: "no_action",
			apperr.MetaStage:  apperr.StageDecision,
		})
	}

	if decision.Arguments == nil {
		decision.Arguments = make(map[string]any)
	}

	decision.Thought = strings.TrimSpace(strings.Join(thoughts, "\n"))

	step.SetAttributes(attribute.String("action", string(decision.Action)))
	logger.Debug("Decision received", zap.String(logg.Action, string(decision.Action)))

	return decision, nil
}

func (c *AnthropicPolicy) FinalAnswer(ctx context.Context, req *entity.FinalAnswerRequest) (answer string, err error) {
	const op = "AnthropicPolicy.FinalAnswer"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("history_len", len(req.History)))
	defer func() {
		step.End(err)
	}()

	body := anthropicRequest{
		Model:       c.config.ModelName(),
		MaxTokens:   c.config.MaxTokens,
		System:      finalSystemPrompt,
		Temperature: c.config.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: renderFinalPrompt(req)}},
	}

	resp, err := c.send(ctx, logger, body)
	if err != nil {
		return "", decisionError(op, err)
	}

	var text strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return text.String(), nil
}

func (c *AnthropicPolicy) send(ctx context.Context, logger *zap.Logger, body anthropicRequest) (*anthropicResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out anthropicResponse

	err = withRetry(ctx, logger, c.config.MaxRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.config.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &statusError{Code: resp.StatusCode, Body: string(data)}
			if retryableStatus(resp.StatusCode) {
				return apiErr
			}

			return backoff.Permanent(apiErr)
		}

		if err := json.Unmarshal(data, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func anthropicTools(actions []entity.ActionSpec) []anthropicTool {
	tools := make([]anthropicTool, 0, len(actions))

	for _, a := range actions {
		params := a.Parameters
		if params == nil {
			params = &entity.ParamSpec{Type: "object", Properties: map[string]*entity.ParamSpec{}}
		}

		tools = append(tools, anthropicTool{
			Name:        string(a.Name),
			Description: a.Description,
			InputSchema: params,
		})
	}

	return tools
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

func decisionError(op string, err error) error {
	meta := map[string]any{
		apperr.MetaReason: "api_error",
		apperr.MetaStage:  apperr.StageDecision,
	}

	var se *statusError
	if errors.As(err, &se) {
		meta["status_code"] = se.Code
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		meta[apperr.MetaReason] = "context_done"
	}

	return apperr.Wrap(op, apperr.CodeAIError, err, meta)
}
