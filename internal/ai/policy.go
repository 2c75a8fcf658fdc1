// Package ai implements the decision-maker: it picks the next browser action
// from a fixed catalogue and writes the final structured answer.
package ai

import (
	"context"
	"fmt"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	_ ports.DecisionPolicy = (*AnthropicPolicy)(nil)
	_ ports.DecisionPolicy = (*GeminiPolicy)(nil)
	_ ports.DecisionPolicy = (*ScriptedPolicy)(nil)
)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewPolicy selects the decision-maker named by AI_PROVIDER.
func NewPolicy(params Params) (ports.DecisionPolicy, error) {
	cfg := params.Config.AIConfig

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiPolicy(context.Background(), cfg, params.Logger)
	case config.ProviderAnthropic:
		return NewAnthropicPolicy(cfg, params.Logger, nil), nil
	case config.ProviderScripted:
		script, err := LoadScript(cfg.ScriptPath)
		if err != nil {
			return nil, err
		}

		return NewScriptedPolicy(script, params.Logger), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
