package ai

import (
	"context"
	"errors"
	"fmt"
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
	"google.golang.org/genai"
)

const (
	geminiClientName = "GeminiPolicy"
	geminiTracer     = "ai.gemini"
)

// contentGenerator is the slice of *genai.Models the policy needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiPolicy struct {
	config    *config.AIConfig
	logger    *zap.Logger
	tracer    trace.Tracer
	generator contentGenerator
}

func NewGeminiPolicy(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (*GeminiPolicy, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newGeminiPolicy(cfg, logger, client.Models), nil
}

func newGeminiPolicy(cfg *config.AIConfig, logger *zap.Logger, generator contentGenerator) *GeminiPolicy {
	return &GeminiPolicy{
		config:    cfg,
		logger:    logger.With(zap.String(logg.Layer, geminiClientName)),
		tracer:    otel.Tracer(geminiTracer),
		generator: generator,
	}
}

func (g *GeminiPolicy) ChooseAction(ctx context.Context, req *entity.DecisionRequest) (decision *entity.Decision, err error) {
	const op = "GeminiPolicy.ChooseAction"
	logger := g.logger.With(zap.String(logg.Operation, op), zap.Int(logg.Iteration, req.Observation.Iteration))

	ctx, step := tracing.StartSpan(ctx, g.tracer, logger, op,
		attribute.Int("history_len", len(req.History)),
		attribute.Int("actions_count", len(req.Actions)))
	defer func() {
		step.End(err)
	}()

	cfg := g.baseConfig(systemPrompt)
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Actions)}}
	cfg.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny},
	}

	resp, err := g.generate(ctx, logger, renderDecisionPrompt(req), cfg)
	if err != nil {
		return nil, decisionError(op, err)
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return nil, apperr.Wrap(op, apperr.CodeAIError, errNoToolUse, map[string]any{
			apperr.MetaReason: "no_action",
			apperr.MetaStage:  apperr.StageDecision,
		})
	}

	args := calls[0].Args
	if args == nil {
		args = make(map[string]any)
	}

	decision = &entity.Decision{
		Action:    entity.ActionName(calls[0].Name),
		Arguments: args,
		Thought:   strings.TrimSpace(responseText(resp)),
	}

	step.SetAttributes(attribute.String("action", string(decision.Action)))
	logger.Debug("Decision received", zap.String(logg.Action, string(decision.Action)))

	return decision, nil
}

func (g *GeminiPolicy) FinalAnswer(ctx context.Context, req *entity.FinalAnswerRequest) (answer string, err error) {
	const op = "GeminiPolicy.FinalAnswer"
	logger := g.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, g.tracer, logger, op,
		attribute.Int("history_len", len(req.History)))
	defer func() {
		step.End(err)
	}()

	cfg := g.baseConfig(finalSystemPrompt)
	cfg.ResponseMIMEType = "application/json"

	resp, err := g.generate(ctx, logger, renderFinalPrompt(req), cfg)
	if err != nil {
		return "", decisionError(op, err)
	}

	return responseText(resp), nil
}

func (g *GeminiPolicy) baseConfig(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.config.Temperature),
		MaxOutputTokens:   int32(g.config.MaxTokens),
	}
}

func (g *GeminiPolicy) generate(ctx context.Context, logger *zap.Logger, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse

	err := withRetry(ctx, logger, g.config.MaxRetries, func() error {
		out, err := g.generator.GenerateContent(ctx, g.config.ModelName(), contents, cfg)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && !retryableStatus(apiErr.Code) {
				return backoff.Permanent(&statusError{Code: apiErr.Code, Body: apiErr.Message})
			}

			return err
		}

		if out == nil || len(out.Candidates) == 0 {
			return backoff.Permanent(errors.New("gemini returned no candidates"))
		}

		resp = out

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}

		b.WriteString(part.Text)
	}

	return b.String()
}

func functionDeclarations(actions []entity.ActionSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(actions))

	for _, a := range actions {
		decl := &genai.FunctionDeclaration{
			Name:        string(a.Name),
			Description: a.Description,
		}

		if a.Parameters != nil && len(a.Parameters.Properties) > 0 {
			decl.Parameters = toGenaiSchema(a.Parameters)
		}

		decls = append(decls, decl)
	}

	return decls
}

func toGenaiSchema(p *entity.ParamSpec) *genai.Schema {
	if p == nil {
		return nil
	}

	s := &genai.Schema{
		Type:        genaiType(p.Type),
		Description: p.Description,
		Enum:        p.Enum,
		Required:    p.Required,
		Items:       toGenaiSchema(p.Items),
	}

	if len(p.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(p.Properties))
		for name, prop := range p.Properties {
			s.Properties[name] = toGenaiSchema(prop)
		}
	}

	return s
}

func genaiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
